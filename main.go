package main

import (
	"net/http"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/client/es"
	"taskflow/client/push"
	"taskflow/client/s3"
	"taskflow/common"
	"taskflow/dashboard"
	"taskflow/domain"
	"taskflow/domain/assignment"
	"taskflow/domain/clientdoc"
	"taskflow/domain/flow"
	"taskflow/domain/project"
	"taskflow/event"
	"taskflow/indices"
	"taskflow/infra/tracing"
	"taskflow/notification"
	"taskflow/persistence"
	"taskflow/servehttp"
	"taskflow/session"
	"taskflow/sessions"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugln("no .env file loaded")
	}
	logrus.Infoln("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(nil).AutoMigrate(
		&account.User{}, &account.Role{}, &account.Permission{},
		&account.RolePermissionBinding{}, &account.UserRoleBinding{},
		&domain.Project{}, &domain.ProjectMember{},
		&domain.WorkingStep{}, &domain.Task{},
		&domain.Assignment{}, &domain.AssignmentDoc{}, &domain.ClientDocRequest{},
		&event.EventRecord{}, &notification.Notification{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v\n", err)
	}

	if err := account.DefaultSecurityConfiguration(); err != nil {
		logrus.Fatalf("failed to prepare default security configuration %v\n", err)
	}

	tracingCloser, err := tracing.Bootstrap()
	if err != nil {
		logrus.Fatalf("failed to bootstrap tracing %v\n", err)
	}
	defer tracingCloser.Close()

	es.CreateClientFromEnv()
	s3.Bootstrap()
	push.Bootstrap()

	event.EventHandlers = append(event.EventHandlers, indices.ActivityIndexEventHandle)

	engine := gin.New()
	engine.Use(gin.Recovery(), bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine)

	account.RegisterUsersRestAPI(engine, session.SimpleAuthFilter())
	project.RegisterProjectsRestAPI(engine, session.SimpleAuthFilter())
	assignment.RegisterAssignmentsRestAPI(engine, session.SimpleAuthFilter())
	clientdoc.RegisterClientDocRequestsRestAPI(engine, session.SimpleAuthFilter())
	flow.RegisterTaskTransitionsRestAPI(engine, session.SimpleAuthFilter())
	notification.RegisterNotificationsRestAPI(engine, session.SimpleAuthFilter())
	dashboard.RegisterDashboardRestAPI(engine, session.SimpleAuthFilter())
	indices.RegisterIndicesRestAPI(engine, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(":80", engine)
}
