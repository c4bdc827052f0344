package account_test

import (
	"context"
	"taskflow/account"
	"taskflow/authority"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/persistence"
	"taskflow/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("AuthorityManage", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("taskflow")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(
			&account.User{}, &account.Role{}, &account.Permission{},
			&account.RolePermissionBinding{}, &account.UserRoleBinding{},
			&domain.Project{}, &domain.ProjectMember{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	Describe("DefaultSecurityConfiguration", func() {
		It("should bootstrap the admin account and bindings", func() {
			Expect(account.DefaultSecurityConfiguration()).To(BeNil())

			admin := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Where(&account.User{ID: 1}).First(&admin).Error).To(BeNil())
			Expect(admin.Name).To(Equal("admin"))
			Expect(admin.Secret).To(Equal(account.HashSha256("admin123")))

			perms, projectRoles := account.LoadPermFunc(1)
			Expect(perms).To(Equal(authority.Permissions{account.SystemAdminPermission.ID}))
			Expect(projectRoles).To(Equal(authority.ProjectRoles{}))
		})

		It("should not reset an existing admin secret", func() {
			Expect(account.DefaultSecurityConfiguration()).To(BeNil())
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{ID: 1}).
				Update("secret", account.HashSha256("changed")).Error).To(BeNil())

			Expect(account.DefaultSecurityConfiguration()).To(BeNil())
			admin := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Where(&account.User{ID: 1}).First(&admin).Error).To(BeNil())
			Expect(admin.Secret).To(Equal(account.HashSha256("changed")))
		})
	})

	Describe("AddProjectMember", func() {
		It("should forbid member addition without manager role", func() {
			err := account.AddProjectMember(&account.MemberAddition{ProjectID: 1, MemberID: 2, Role: domain.ProjectRoleWorker},
				testinfra.BuildSession(10, domain.ProjectRoleWorker+"_1"))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})

		It("should add and replace project membership", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			Expect(db.Save(&account.User{ID: 2, Name: "bbb", Secret: "x"}).Error).To(BeNil())
			Expect(db.Save(&domain.Project{ID: 1, Identifier: "PR1", Name: "project 1",
				Status: domain.ProjectStatusInProgress, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

			s := testinfra.BuildSession(10, domain.ProjectRoleManager+"_1")
			Expect(account.AddProjectMember(&account.MemberAddition{ProjectID: 1, MemberID: 2, Role: domain.ProjectRoleWorker}, s)).To(BeNil())

			members, err := account.QueryProjectMembers(1, s)
			Expect(err).To(BeNil())
			Expect(len(members)).To(Equal(1))
			Expect(members[0].Role).To(Equal(domain.ProjectRoleWorker))

			Expect(account.AddProjectMember(&account.MemberAddition{ProjectID: 1, MemberID: 2, Role: domain.ProjectRoleClient}, s)).To(BeNil())
			members, err = account.QueryProjectMembers(1, s)
			Expect(err).To(BeNil())
			Expect(len(members)).To(Equal(1))
			Expect(members[0].Role).To(Equal(domain.ProjectRoleClient))
		})
	})

	Describe("QueryMemberIDs", func() {
		It("should list member ids holding a role on the project", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			Expect(db.Save(&domain.ProjectMember{ID: 1, ProjectId: 1, MemberId: 20, Role: domain.ProjectRoleManager,
				CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
			Expect(db.Save(&domain.ProjectMember{ID: 2, ProjectId: 1, MemberId: 21, Role: domain.ProjectRoleManager,
				CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
			Expect(db.Save(&domain.ProjectMember{ID: 3, ProjectId: 1, MemberId: 22, Role: domain.ProjectRoleWorker,
				CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

			ids, err := account.QueryMemberIDs(db, 1, domain.ProjectRoleManager)
			Expect(err).To(BeNil())
			Expect(ids).To(Equal([]types.ID{20, 21}))

			ids, err = account.QueryMemberIDs(db, 1, domain.ProjectRoleClient)
			Expect(err).To(BeNil())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("loadPerms", func() {
		It("should load project roles from membership", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			Expect(db.Save(&domain.Project{ID: 1, Identifier: "PR1", Name: "project 1",
				Status: domain.ProjectStatusInProgress, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
			Expect(db.Save(&domain.ProjectMember{ID: 1, ProjectId: 1, MemberId: 20, Role: domain.ProjectRoleWorker,
				CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

			perms, projectRoles := account.LoadPermFunc(20)
			Expect(perms).To(Equal(authority.Permissions{domain.ProjectRoleWorker + "_1"}))
			Expect(projectRoles).To(Equal(authority.ProjectRoles{{
				ProjectID: 1, ProjectName: "project 1", ProjectIdentifier: "PR1", Role: domain.ProjectRoleWorker}}))
		})
	})
})
