package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name   string `gorm:"size:100;not null"`
	Method string `gorm:"size:100;not null"`

	SubmittedDate time.Time

	TrainStatus string `gorm:"size:100;not null"`

	Access            string `gorm:"size:100;not null;default:'private'"`
	DefaultPermission string `gorm:"size:100;not null;default:'read'"`

	Attributes []RunAttribute `gorm:"constraint:OnDelete:CASCADE"`

	BaseRunId *uuid.UUID `gorm:"type:uuid"`
	BaseRun   *Run       `gorm:"constraint:OnDelete:SET NULL"`

	UserId uuid.UUID `gorm:"type:uuid;not null"`
	User   *User
}

func (r *Run) GetAttributes() map[string]string {
	attrs := make(map[string]string)
	for _, attr := range r.Attributes {
		attrs[attr.Key] = attr.Value
	}
	return attrs
}

func (r *Run) TrainJobName() string {
	return fmt.Sprintf("train-%v-%v", r.Method, r.Id)
}

type RunAttribute struct {
	RunId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Key   string    `gorm:"primaryKey"`
	Value string
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null;default:false"`

	Runs []Run
}

type JobLog struct {
	Id      uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunId   uuid.UUID `gorm:"type:uuid;index"`
	Level   string    `gorm:"size:50;not null"`
	Message string
}

type Upload struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid"`

	UploadDate time.Time
	Files      string

	User *User `gorm:"constraint:OnDelete:CASCADE"`
}
