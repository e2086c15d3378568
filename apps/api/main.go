package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/smartclass/attendance/apps/api/echo"
	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/classroom"
	"github.com/smartclass/attendance/core/course"
	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/statistics"
	"github.com/smartclass/attendance/core/student"
	"github.com/smartclass/attendance/core/user"
	emailsvc "github.com/smartclass/attendance/services/email"
	logsvc "github.com/smartclass/attendance/services/logger"
	mqttsvc "github.com/smartclass/attendance/services/mqtt"
	mongodb "github.com/smartclass/attendance/storage/mongo"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := mongodb.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = mongodb.Close(db, conf.Database.Timeout); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()
	{
		ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
		err = mongodb.EnsureIndexes(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal(fmt.Sprintf("ensuring indexes: %v", err), err)
		}
	}

	// set up the device command channel; a dead broker degrades command
	// delivery but must not take the API down
	channel := mqttsvc.NewClient(conf, logger)
	if err = channel.Connect(); err != nil {
		logger.Error(fmt.Sprintf("connecting to broker: %v", err), err)
	}
	defer channel.Disconnect()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(mongodb.NewUserRepository(db))
	studentSvc := student.NewService(mongodb.NewStudentRepository(db))
	classroomSvc := classroom.NewService(mongodb.NewClassroomRepository(db), channel)
	courseSvc := course.NewService(mongodb.NewCourseRepository(db), studentSvc, channel, logger)
	sessionSvc := session.NewService(
		mongodb.NewSessionRepository(db),
		courseSvc, courseSvc, classroomSvc,
		channel, mailSvc, logger,
	)
	statsSvc := statistics.NewService(mongodb.NewStatisticsStore(db))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.InitValidators()
	echoapi.InitAuth(conf)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		UserSvc:      usrSvc,
		StudentSvc:   studentSvc,
		ClassroomSvc: classroomSvc,
		CourseSvc:    courseSvc,
		SessionSvc:   sessionSvc,
		StatsSvc:     statsSvc,
		Channel:      channel,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
