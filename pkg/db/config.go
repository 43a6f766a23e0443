package db

import "time"

// Config describes a relational store connection.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// OperationTimeout bounds every store call made by the services.
	OperationTimeout time.Duration
}
