package models

import (
	"time"

	"gorm.io/gorm"
)

// User 员工表（签约销售、收款人、薪资对象）
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Name         string         `gorm:"type:varchar(80);not null" json:"name"`                     // 姓名
	Email        string         `gorm:"type:varchar(120);index" json:"email"`                      // 邮箱
	DepartmentID *uint          `gorm:"index" json:"department_id"`                                // 所属部门
	Status       string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // 在职状态
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"` // 部门
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Department 部门表
type Department struct {
	ID        uint      `gorm:"primarykey" json:"id"`                  // 主键
	Name      string    `gorm:"type:varchar(80);not null" json:"name"` // 部门名称
	ParentID  *uint     `gorm:"index" json:"parent_id"`                // 上级部门
	CreatedAt time.Time `json:"created_at"`                            // 创建时间
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}
