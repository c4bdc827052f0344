package account

import (
	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	Name     string   `json:"name" gorm:"unique_index:name_unique"`
	Nickname string   `json:"nickname"`
	Secret   string   `json:"-"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserCreation struct {
	Name     string `json:"name" binding:"required,lte=60"`
	Nickname string `json:"nickname" binding:"lte=60"`
	Secret   string `json:"secret" binding:"required,gte=6,lte=32"`
}

type UserUpdation struct {
	Nickname string `json:"nickname" binding:"required,lte=60"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret" binding:"required"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6,lte=32"`
}

type Role struct {
	ID    string `json:"id" gorm:"primary_key"`
	Title string `json:"title"`
}

type Permission struct {
	ID    string `json:"id" gorm:"primary_key"`
	Title string `json:"title"`
}

type RolePermissionBinding struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	RoleID       string   `json:"roleId"`
	PermissionID string   `json:"permissionId"`
}

type UserRoleBinding struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	UserID types.ID `json:"userId"`
	RoleID string   `json:"roleId"`
}

type MemberAddition struct {
	ProjectID types.ID `json:"projectId" binding:"required"`
	MemberID  types.ID `json:"memberId" binding:"required"`
	Role      string   `json:"role" binding:"required,oneof=manager worker client"`
}
