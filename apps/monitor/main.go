package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/payment"
	logsvc "github.com/richyfesta/arnoma/services/logger"
	mailboxsvc "github.com/richyfesta/arnoma/services/mailbox"
	"github.com/richyfesta/arnoma/storage/database"
	sqlxrepos "github.com/richyfesta/arnoma/storage/database/sqlx"
)

// monitor ingests payment notification emails from the business inbox.
// It runs separately from the API so a mailbox outage never takes the
// reminder engine down with it.
func main() {
	std := log.New(os.Stdout, "MONITOR : ", log.LstdFlags|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)

	var logger core.Logger
	if conf.Debug {
		logger = core.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	db, err := database.Open(conf)
	errAndDie(std, err)
	defer func() { _ = db.Close() }()

	paymentSvc := payment.NewService(sqlxrepos.NewPaymentRepository(db))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	watcher := mailboxsvc.NewWatcher(conf, paymentSvc, logger)
	watcher.Run(ctx)
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
