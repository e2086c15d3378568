package main

import (
	"errors"

	"github.com/smartclass/attendance/core/command"
)

// sendCommand dispatches a one-off device command and reports local
// acceptance; delivery to the device is fire-and-forget.
func (cli *commandLine) sendCommand(classroomID, kind string, params command.Params) error {
	channel, err := newChannel(cli.conf)
	if err != nil {
		return err
	}
	defer channel.Disconnect()

	if !channel.Publish(classroomID, kind, params) {
		return errors.New("command was not accepted by the broker")
	}
	logger.Printf("command %s sent to %s", kind, command.Topic(classroomID))
	return nil
}
