package main

import (
	"context"

	mongodb "github.com/smartclass/attendance/storage/mongo"
)

func (cli *commandLine) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.Database.Timeout)
	defer cancel()

	if err := mongodb.EnsureIndexes(ctx, cli.db); err != nil {
		return err
	}
	logger.Print("indexes created")
	return nil
}
