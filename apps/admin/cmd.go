package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/term"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	usrRepo user.Repository
	db      *mongo.Database
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role admin|teacher] [-teacher-id ID] - add or update a user; the password is prompted next")
	fmt.Println("  ensure-indexes - create all database indexes")
	fmt.Println("  sendcmd -classroom ID -command CMD [-params JSON] - dispatch a device command")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "The user's role: admin or teacher.")
	addUserTeacherID := addUserCmd.String("teacher-id", "", "The teacher ID, required for the teacher role.")

	sendCmd := flag.NewFlagSet("sendcmd", flag.ExitOnError)
	sendCmdClassroom := sendCmd.String("classroom", "", "The target classroom ID.")
	sendCmdCommand := sendCmd.String("command", "", "The command kind to dispatch.")
	sendCmdParams := sendCmd.String("params", "", "Optional JSON command parameters.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		if *addUserRole == user.RoleTeacher && *addUserTeacherID == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, string(pwd), *addUserRole, *addUserTeacherID)

	case "ensure-indexes":
		return cli.ensureIndexes()

	case "sendcmd":
		if err := sendCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sendCmdClassroom == "" || *sendCmdCommand == "" {
			sendCmd.Usage()
			return errHelp
		}
		var params command.Params
		if *sendCmdParams != "" {
			if err := json.Unmarshal([]byte(*sendCmdParams), &params); err != nil {
				return fmt.Errorf("invalid -params JSON: %w", err)
			}
		}
		return cli.sendCommand(*sendCmdClassroom, *sendCmdCommand, params)

	default:
		cli.printUsage()
		return errHelp
	}
}
