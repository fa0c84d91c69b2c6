package main

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/gorp.v2"
)

const (
	ProdHost   = "127.0.0.1"
	ProdDbUser = "helpdesk"

	LocalHost   = "127.0.0.1"
	LocalDbUser = "root"

	DbName = "helpdesk"
)

var dbmap *gorp.DbMap

func initDB() {
	host := LocalHost
	password := passwords.LOCAL_DB_PW
	user := LocalDbUser

	if env.Production {
		host = ProdHost
		password = passwords.PROD_DB_PW
		user = ProdDbUser
	}

	db, err := sql.Open("mysql", user+":"+password+"@tcp("+host+":3306)/"+DbName)
	if err != nil {
		panic("💥 DB OPEN FAILED: " + err.Error())
	}

	err = db.Ping()
	if err != nil {
		panic("💥 DB PING FAILED: " + err.Error())
	}

	InfoLog.Println("Connected to DB ", host)

	dbmap = newDbMap(db)

	err = dbmap.CreateTablesIfNotExists()
	if err != nil {
		panic("💥 DB ADD TABLES FAILED")
	}

	go runExecs()
}

func newDbMap(db *sql.DB) *gorp.DbMap {
	m := &gorp.DbMap{Db: db, Dialect: gorp.MySQLDialect{Engine: "InnoDB", Encoding: "UTF8"}}

	m.AddTableWithName(Tenant{}, "tenants")
	m.AddTableWithName(ProvisioningRun{}, "provisioning_runs")

	return m
}

func runExecs() {
	dbmap.Exec("CREATE UNIQUE INDEX tenantUnique ON tenants (tenant_id)")
	dbmap.Exec("CREATE INDEX runsByTicket ON provisioning_runs (ticket_id, created)")
	dbmap.Exec("CREATE INDEX runsByCreated ON provisioning_runs (created)")
	dbmap.Exec("ALTER TABLE provisioning_runs MODIFY metadata TEXT")
	dbmap.Exec("ALTER TABLE tenants ADD COLUMN cloudradial_company_id BIGINT(20) DEFAULT 0")
}
