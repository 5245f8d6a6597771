package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartreceipts/models"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/store"
	"smartreceipts/process/report"
)

func main() {
	username := flag.String("username", "admin", "username to report for")
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching receipts")
	local := flag.Bool("local", false, "report on the local bbolt store (BOLT_PATH) instead of Postgres")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	var st store.Store
	who := "local store"
	if *local {
		b, err := store.NewBolt(cfg.Local.BoltPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open bolt: %v\n", err)
			os.Exit(2)
		}
		st = b
	} else {
		if cfg.Database.DSN == "" {
			fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
			os.Exit(2)
		}
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			os.Exit(2)
		}
		var user models.User
		if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
			fmt.Fprintf(os.Stderr, "user not found: %v\n", err)
			os.Exit(2)
		}
		st = store.NewGorm(db).ForUser(user.ID)
		who = "user=" + user.Username
	}
	defer st.Close()

	rep, err := report.Load(context.Background(), st, *month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}
	report.Write(os.Stdout, who, rep, *list)
}
