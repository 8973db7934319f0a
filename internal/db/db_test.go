package db

import (
	"testing"

	"github.com/shinyyama/hoko/internal/config"
)

func TestBuildDSN(t *testing.T) {
	base := config.Config{DBUser: "hoko", DBPassword: "secret", DBName: "market", DBPort: "3306"}
	tests := []struct {
		name     string
		host     string
		instance string
		want     string
	}{
		{"plain host", "10.0.0.5", "", "hoko:secret@tcp(10.0.0.5:3306)/market?charset=utf8mb4&parseTime=True&loc=Local"},
		{"tcp prefix", "tcp(db:3307)", "", "hoko:secret@tcp(db:3307)/market?charset=utf8mb4&parseTime=True&loc=Local"},
		{"socket path", "/var/run/mysqld.sock", "", "hoko:secret@unix(/var/run/mysqld.sock)/market?charset=utf8mb4&parseTime=True&loc=Local"},
		{"cloud sql", "ignored", "proj:region:inst", "hoko:secret@unix(/cloudsql/proj:region:inst)/market?charset=utf8mb4&parseTime=True&loc=Local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.DBHost = tt.host
			cfg.InstanceConnectionName = tt.instance
			if got := BuildDSN(&cfg); got != tt.want {
				t.Fatalf("got=%s want=%s", got, tt.want)
			}
		})
	}
}
