package domain

import (
	"errors"
	"time"
)

var ErrCountryNotFound = errors.New("country_not_found")

type Country struct {
	Code      string    `json:"code" gorm:"type:char(2);primaryKey;column:code"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	PhoneCode string    `json:"phone_code" gorm:"type:varchar(8);not null;default:''"`
	CreatedAt time.Time `json:"-" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Country) TableName() string { return "countries" }
