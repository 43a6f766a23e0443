package reference

import (
	"context"
	"strings"

	"github.com/smallbiznis/giftflow/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	type row struct {
		Code      string `gorm:"column:code"`
		Name      string `gorm:"column:name"`
		PhoneCode string `gorm:"column:phone_code"`
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Raw(`SELECT code, name, phone_code FROM countries ORDER BY name`).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	countries := make([]domain.Country, 0, len(rows))
	for _, item := range rows {
		countries = append(countries, domain.Country{
			Code:      item.Code,
			Name:      item.Name,
			PhoneCode: item.PhoneCode,
		})
	}
	return countries, nil
}

// FindCountry returns nil when code is not a known ISO 3166 alpha-2 code.
func (r *repository) FindCountry(ctx context.Context, code string) (*domain.Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return nil, nil
	}

	var country domain.Country
	res := r.db.WithContext(ctx).
		Select("code", "name", "phone_code").
		Where("code = ?", code).
		Limit(1).
		Find(&country)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &country, nil
}
