package account_test

import (
	"context"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/persistence"
	"taskflow/session"
	"taskflow/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("userManage", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("taskflow")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(&account.User{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	Describe("UpdateBasicAuthSecret", func() {
		It("should be able to update basic auth secret correctly", func() {
			sec := session.Session{Identity: session.Identity{ID: 1}}
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 1, Name: "aaa", Secret: account.HashSha256("123456")}).Error).To(BeNil())
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "234567", NewSecret: "654321"}, &sec)).To(Equal(bizerror.ErrInvalidPassword))
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "123456", NewSecret: "654321"}, &sec)).To(BeNil())

			user := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).Where(&account.User{ID: sec.Identity.ID}).First(&user).Error).To(BeNil())
			Expect(user.Secret).To(Equal(account.HashSha256("654321")))
		})
	})

	Describe("DisplayName", func() {
		It("should be able to compute display name", func() {
			Expect(account.User{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.User{Name: "test", Nickname: ""}.DisplayName()).To(Equal("test"))
			Expect(account.UserInfo{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.UserInfo{Name: "test"}.DisplayName()).To(Equal("test"))
		})
	})

	Describe("CreateUser", func() {
		It("should forbid user creation without system admin permission", func() {
			sec := session.Session{Identity: session.Identity{ID: 10}}
			record, err := account.CreateUser(&account.UserCreation{Name: "bbb", Secret: "123456"}, &sec)
			Expect(record).To(BeNil())
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})

		It("should be able to create user with hashed secret", func() {
			sec := session.Session{Identity: session.Identity{ID: 10}, Perms: []string{account.SystemAdminPermission.ID}}
			record, err := account.CreateUser(&account.UserCreation{Name: "bbb", Nickname: "B", Secret: "123456"}, &sec)
			Expect(err).To(BeNil())
			Expect(record.Name).To(Equal("bbb"))
			Expect(record.Nickname).To(Equal("B"))

			user := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Where(&account.User{ID: record.ID}).First(&user).Error).To(BeNil())
			Expect(user.Secret).To(Equal(account.HashSha256("123456")))
		})
	})

	Describe("QueryUsers", func() {
		It("should be able to query users without secrets", func() {
			sec := session.Session{Identity: session.Identity{ID: 1}, Perms: []string{account.SystemAdminPermission.ID}}
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 1, Name: "aaa", Secret: account.HashSha256("123456")}).Error).To(BeNil())
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 2, Name: "bbb", Nickname: "B", Secret: account.HashSha256("123456")}).Error).To(BeNil())

			users, err := account.QueryUsers(&sec)
			Expect(err).To(BeNil())
			Expect(len(*users)).To(Equal(2))
			Expect((*users)[0].Name).To(Equal("aaa"))
			Expect((*users)[1].Nickname).To(Equal("B"))
		})
	})

	Describe("QueryAccountNames", func() {
		It("should map account ids to display names", func() {
			sec := session.Session{Identity: session.Identity{ID: 1}}
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 1, Name: "aaa", Secret: "x"}).Error).To(BeNil())
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 2, Name: "bbb", Nickname: "B", Secret: "x"}).Error).To(BeNil())

			names, err := account.QueryAccountNames([]types.ID{1, 2}, &sec)
			Expect(err).To(BeNil())
			Expect(names).To(Equal(map[types.ID]string{1: "aaa", 2: "B"}))

			names, err = account.QueryAccountNames([]types.ID{}, &sec)
			Expect(err).To(BeNil())
			Expect(names).To(BeEmpty())
		})
	})
})
