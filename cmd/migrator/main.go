package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Domenick1991/roombooking/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var cfgPath, migrationsPath string
	var down bool

	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.StringVar(&migrationsPath, "migrations-path", "migrations", "path to migrations")
	flag.BoolVar(&down, "down", false, "roll back every migration")
	flag.Parse()

	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	m, err := migrate.New("file://"+migrationsPath, cfg.Database.URL())
	if err != nil {
		panic(err)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")

			return
		}

		panic(err)
	}

	fmt.Println("migrations applied")
}
