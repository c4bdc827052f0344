package account

import (
	"errors"
	"fmt"
	"os"
	"taskflow/authority"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	systemAdminRole        = Role{ID: "system-admin", Title: "System Administrator"}
	SystemAdminPermission  = Permission{ID: "system:admin", Title: "System Administration"}
	systemAdminRoleBinding = RolePermissionBinding{ID: 1, RoleID: systemAdminRole.ID, PermissionID: SystemAdminPermission.ID}
)

var (
	memberIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	LoadPermFunc          = loadPerms
	AddProjectMemberFunc  = AddProjectMember
	QueryMemberIDsFunc    = QueryMemberIDs
	QueryProjectMembersFunc = QueryProjectMembers
)

func LoadPermFuncReset() {
	LoadPermFunc = loadPerms
}

func DefaultSecurityConfiguration() error {
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	if err := db.Save(&systemAdminRole).Error; err != nil {
		return err
	}
	if err := db.Save(&SystemAdminPermission).Error; err != nil {
		return err
	}
	if err := db.Save(&systemAdminRoleBinding).Error; err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := User{}
		err := tx.Model(&User{}).Where(&User{ID: 1}).First(&admin).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			initialAdminPassword := os.ExpandEnv("${INITIAL_ADMIN_PASSWORD}")
			if initialAdminPassword == "" {
				initialAdminPassword = "admin123"
			}
			if err := tx.Save(&User{ID: 1, Name: "admin", Secret: HashSha256(initialAdminPassword)}).Error; err != nil {
				return err
			}
		}
		return tx.Save(&UserRoleBinding{ID: 1, UserID: 1, RoleID: systemAdminRole.ID}).Error
	})
}

// AddProjectMember binds a user to a project with a role; an existing
// membership of the user on the project is replaced.
func AddProjectMember(c *MemberAddition, s *session.Session) error {
	if !s.Perms.HasRole(SystemAdminPermission.ID) &&
		!s.Perms.HasProjectRole(domain.ProjectRoleManager, c.ProjectID) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: c.MemberID}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		project := domain.Project{ID: c.ProjectID}
		if err := tx.Where(&project).First(&project).Error; err != nil {
			return err
		}

		existed := domain.ProjectMember{}
		err := tx.Where(&domain.ProjectMember{ProjectId: c.ProjectID, MemberId: c.MemberID}).First(&existed).Error
		if err == nil {
			return tx.Model(&existed).Update(&domain.ProjectMember{Role: c.Role}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		member := domain.ProjectMember{ID: idgen.NextID(memberIdWorker), ProjectId: c.ProjectID,
			MemberId: c.MemberID, Role: c.Role, CreateTime: types.CurrentTimestamp()}
		return tx.Create(&member).Error
	})
}

func QueryProjectMembers(projectId types.ID, s *session.Session) ([]domain.ProjectMember, error) {
	if !s.Perms.HasProjectViewPerm(projectId) {
		return nil, bizerror.ErrForbidden
	}
	members := []domain.ProjectMember{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&domain.ProjectMember{ProjectId: projectId}).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// QueryMemberIDs lists user ids holding the given role on the project,
// used to compute notification targets.
func QueryMemberIDs(db *gorm.DB, projectId types.ID, role string) ([]types.ID, error) {
	var ids []types.ID
	if err := db.Model(&domain.ProjectMember{}).Where(&domain.ProjectMember{ProjectId: projectId, Role: role}).
		Pluck("member_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// as a simple initial solution, we use project member relationship as the metadata of permissions
func loadPerms(uid types.ID) (authority.Permissions, authority.ProjectRoles) {
	var roles []string
	var projectRoles []domain.ProjectRole
	db := persistence.ActiveDataSourceManager.GormDB(nil)

	// system perms
	var systemRoles []string
	if err := db.Model(&UserRoleBinding{}).Where(&UserRoleBinding{UserID: uid}).Pluck("role_id", &systemRoles).Error; err != nil {
		panic(err)
	}

	if len(systemRoles) > 0 {
		var systemPerms []string
		if err := db.Model(&RolePermissionBinding{}).Where("role_id IN (?)", systemRoles).Pluck("permission_id", &systemPerms).Error; err != nil {
			panic(err)
		}
		roles = append(roles, systemPerms...)

		// system role: all projects are visible as manager
		var projects []domain.Project
		if err := db.Model(&domain.Project{}).Scan(&projects).Error; err != nil {
			panic(err)
		}
		for _, project := range projects {
			roles = append(roles, fmt.Sprintf("%s_%d", domain.ProjectRoleManager, project.ID))
			projectRoles = append(projectRoles, domain.ProjectRole{
				ProjectID: project.ID, ProjectName: project.Name, ProjectIdentifier: project.Identifier, Role: domain.ProjectRoleManager,
			})
		}
	} else {
		var gms []domain.ProjectMember
		var visibleProjectIds []types.ID
		if err := db.Model(&domain.ProjectMember{}).Where(&domain.ProjectMember{MemberId: uid}).Scan(&gms).Error; err != nil {
			panic(err)
		}

		for _, gm := range gms {
			roles = append(roles, fmt.Sprintf("%s_%d", gm.Role, gm.ProjectId))
			projectRoles = append(projectRoles, domain.ProjectRole{Role: gm.Role, ProjectID: gm.ProjectId})
			visibleProjectIds = append(visibleProjectIds, gm.ProjectId)
		}

		m := map[types.ID]domain.Project{}
		if len(visibleProjectIds) > 0 {
			var visibleProjects []domain.Project
			if err := db.Model(&domain.Project{}).Where("id in (?)", visibleProjectIds).Scan(&visibleProjects).Error; err != nil {
				panic(err)
			}
			for _, project := range visibleProjects {
				m[project.ID] = project
			}
		}
		for i := 0; i < len(projectRoles); i++ {
			projectRole := projectRoles[i]
			project := m[projectRole.ProjectID]
			if (project == domain.Project{}) {
				panic(errors.New("project " + projectRole.ProjectID.String() + " is not exist"))
			}
			projectRole.ProjectName = project.Name
			projectRole.ProjectIdentifier = project.Identifier
			projectRoles[i] = projectRole
		}
	}

	if roles == nil {
		roles = []string{}
	}
	if projectRoles == nil {
		projectRoles = []domain.ProjectRole{}
	}

	return roles, projectRoles
}
