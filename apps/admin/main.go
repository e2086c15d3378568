package main

import (
	"log"
	"os"

	"github.com/smartclass/attendance/core"
	mqttsvc "github.com/smartclass/attendance/services/mqtt"
	mongodb "github.com/smartclass/attendance/storage/mongo"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	core.InitValidators()

	// set up DB
	db, err := mongodb.Open(conf)
	errAndDie(err)
	defer func() {
		errAndDie(mongodb.Close(db, conf.Database.Timeout))
	}()

	// start CLI
	cli := commandLine{
		conf:    conf,
		usrRepo: mongodb.NewUserRepository(db),
		db:      db,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

// newChannel connects a short-lived command channel for one-off dispatches.
func newChannel(conf *core.Config) (*mqttsvc.Client, error) {
	channel := mqttsvc.NewClient(conf, core.NewStdLogger(logger))
	if err := channel.Connect(); err != nil {
		return nil, err
	}
	return channel, nil
}
