package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed countries.csv
var countriesCSV []byte

const (
	DemoSlug          = "demo"
	demoOwnerSubject  = "demo-owner"
	demoEmployeeEmail = "demo@giftflow.local"
	demoEmployeePts   = 500
)

// Countries returns the embedded country reference list.
func Countries() ([]referencedomain.Country, error) {
	reader := csv.NewReader(bytes.NewReader(countriesCSV))
	reader.FieldsPerRecord = 3

	var countries []referencedomain.Country
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("countries.csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		countries = append(countries, referencedomain.Country{
			Code:      strings.TrimSpace(record[0]),
			Name:      strings.TrimSpace(record[1]),
			PhoneCode: strings.TrimSpace(record[2]),
		})
	}
	return countries, nil
}

// EnsureCountries inserts missing reference countries.
func EnsureCountries(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	countries, err := Countries()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range countries {
		countries[i].CreatedAt = now
	}
	return db.WithContext(context.Background()).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(countries, 100).Error
}

// EnsureDemoStore seeds an approved tenant with a small catalog and one
// employee so a fresh install has a working storefront.
func EnsureDemoStore(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tenantdomain.Tenant{}).Where("slug = ?", DemoSlug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		tenant := tenantdomain.Tenant{
			ID:           node.Generate(),
			DisplayName:  "Demo Company",
			ContactName:  "Demo Admin",
			ContactEmail: "admin@giftflow.local",
			OwnerSubject: demoOwnerSubject,
			Slug:         DemoSlug,
			Status:       tenantdomain.StatusApproved,
			Branding:     datatypes.NewJSONType(tenantdomain.DefaultBranding()),
			ReviewedAt:   &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		for _, p := range demoProducts() {
			p.ID = node.Generate()
			p.Active = true
			p.CreatedAt = now
			p.UpdatedAt = now
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			if err := tx.Create(&catalogdomain.TenantProduct{TenantID: tenant.ID, ProductID: p.ID, CreatedAt: now}).Error; err != nil {
				return err
			}
		}

		employee := employeedomain.Employee{
			ID:            node.Generate(),
			TenantID:      tenant.ID,
			Email:         demoEmployeeEmail,
			Name:          "Demo Employee",
			PointsBalance: demoEmployeePts,
			Version:       1,
			Status:        employeedomain.StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(&employee).Error; err != nil {
			return err
		}
		return tx.Create(&ledgerdomain.Entry{
			ID:           node.Generate(),
			TenantID:     tenant.ID,
			EmployeeID:   employee.ID,
			Direction:    ledgerdomain.DirectionCredit,
			Amount:       demoEmployeePts,
			BalanceAfter: demoEmployeePts,
			SourceType:   ledgerdomain.SourceTypeImport,
			SourceID:     "initial",
			Note:         "demo seed",
			CreatedAt:    now,
		}).Error
	})
}

func demoProducts() []catalogdomain.Product {
	stock := func(n int64) *int64 { return &n }
	return []catalogdomain.Product{
		{Name: "Ceramic Mug", Description: "Branded 350ml mug", PointCost: 30, Stock: stock(100), Category: "kitchen"},
		{Name: "Wireless Earbuds", Description: "Bluetooth earbuds with case", PointCost: 250, Stock: stock(20), Category: "electronics"},
		{Name: "Gift Card", Description: "Digital voucher", PointCost: 100, Category: "vouchers"},
	}
}
