package main

import (
	"context"
	"log"
	"os"

	echoapi "github.com/richyfesta/arnoma/apps/api/echo"
	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/automation"
	"github.com/richyfesta/arnoma/core/notification"
	"github.com/richyfesta/arnoma/core/payment"
	"github.com/richyfesta/arnoma/core/student"
	emailsvc "github.com/richyfesta/arnoma/services/email"
	sendgridmail "github.com/richyfesta/arnoma/services/email/sendgrid"
	logsvc "github.com/richyfesta/arnoma/services/logger"
	"github.com/richyfesta/arnoma/storage/database"
	sqlxrepos "github.com/richyfesta/arnoma/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)

	var logger core.Logger
	if conf.Debug {
		logger = core.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	errAndDie(std, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(std, err)
	defer func() { _ = db.Close() }()
	errAndDie(std, database.Migrate(db))

	// set up services
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	ledgerSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), sqlxrepos.NewStudentRepository(db))
	paymentSvc := payment.NewService(sqlxrepos.NewPaymentRepository(db))
	ruleRepo := sqlxrepos.NewRuleRepository(db)
	pause := sqlxrepos.NewPauseRegistry(db)
	sentLog := sqlxrepos.NewSentRecordLog(db)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the email module consumes dispatch requests on its own goroutine
	bridge := notification.NewBridge(64)
	responder := emailsvc.NewResponder(bridge, mailSvc, logger)
	go responder.Run(ctx)

	dispatcher := notification.NewDispatcher(sentLog, bridge, logger, conf.Automation.DispatchTimeout)
	matcher := payment.NewMatcher(paymentSvc, studentSvc, ledgerSvc, logger, conf.BusinessTimezone)

	scheduler := automation.NewScheduler(ruleRepo, pause, studentSvc, ledgerSvc, dispatcher, logger, conf)
	scheduler.Start(ctx)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:    conf.Server.Address(),
		Conf:       conf,
		Logger:     logger,
		StudentSvc: studentSvc,
		LedgerSvc:  ledgerSvc,
		PaymentSvc: paymentSvc,
		Matcher:    matcher,
		RuleRepo:   ruleRepo,
		Pause:      pause,
	})
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
