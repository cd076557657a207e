package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/eryxon/uns-gateway/internal/config"
	"github.com/eryxon/uns-gateway/internal/db"
	"github.com/eryxon/uns-gateway/internal/model"
	"github.com/eryxon/uns-gateway/internal/uns"
	"github.com/eryxon/uns-gateway/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo tenants and brokers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo tenants and brokers...")

		if err := seedTenants(sqlDB); err != nil {
			return err
		}
		if err := seedBrokers(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedTenants inserts deterministic demo tenants (idempotent).
func seedTenants(dbx *sqlx.DB) error {
	tenants := []model.Tenant{
		{
			ID:           "tnt_acme",
			Name:         "Acme Co",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			ID:           "tnt_globex",
			Name:         "Globex Manufacturing",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			ID:           "tnt_frozen",
			Name:         "Suspended Works",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO tenants
    (id, name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name           = VALUES(name),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, t := range tenants {
		if _, err := tx.Exec(q, t.ID, t.Name, t.APIKey, t.Status, t.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert tenant %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenants: %w", err)
	}
	return nil
}

// seedBrokers gives each demo tenant a broker config; patterns run through
// uns.Validate so typos surface at seed time instead of at dispatch time.
func seedBrokers(dbx *sqlx.DB) error {
	brokers := []model.BrokerConfig{
		{
			TenantID:          "tnt_acme",
			Name:              "plant mqtt",
			Host:              "mqtt.acme.internal",
			Port:              1883,
			Transport:         model.TransportMQTT,
			TopicPattern:      "{enterprise}/{site}/{area}/{cell}/{event}",
			DefaultEnterprise: "acme",
			DefaultSite:       "plant-1",
			SubscribedEvents:  "operation.started,operation.completed,job.completed",
		},
		{
			TenantID:         "tnt_acme",
			Name:             "emqx bridge",
			Host:             "emqx.acme.internal",
			Port:             18083,
			Username:         "unsgw",
			Password:         "unsgw",
			Transport:        model.TransportEMQX,
			TopicPattern:     "tenants/{tenant_id}/{event}",
			SubscribedEvents: "job.created,job.completed",
		},
		{
			TenantID:          "tnt_globex",
			Name:              "historian",
			Host:              "historian.globex.internal",
			Port:              8080,
			UseTLS:            true,
			TopicPattern:      "{enterprise}/{site}/{line}/{event}",
			DefaultEnterprise: "globex",
			SubscribedEvents:  "operation.started,part.scrapped",
		},
	}

	const q = `
INSERT INTO brokers
    (id, tenant_id, name, host, port, username, password, transport,
     topic_pattern, default_enterprise, default_site, default_area,
     use_tls, enabled, subscribed_events, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    host       = VALUES(host),
    port       = VALUES(port),
    updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, b := range brokers {
		if !b.Transport.Valid() {
			return fmt.Errorf("broker %q: unknown transport %q", b.Name, b.Transport)
		}
		if unknown := uns.Validate(b.TopicPattern); len(unknown) > 0 {
			return fmt.Errorf("broker %q: unknown placeholders %v in pattern %q", b.Name, unknown, b.TopicPattern)
		}
		if _, err := tx.Exec(q,
			util.NewID(), b.TenantID, b.Name, b.Host, b.Port, b.Username, b.Password,
			string(b.Transport), b.TopicPattern, b.DefaultEnterprise, b.DefaultSite,
			b.DefaultArea, b.UseTLS, b.SubscribedEvents, now, now,
		); err != nil {
			return fmt.Errorf("insert broker %q: %w", b.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit brokers: %w", err)
	}
	return nil
}

func intptr(i int) *int { return &i }
