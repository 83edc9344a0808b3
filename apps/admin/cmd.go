package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sql.DB
	conf    *core.Config
	secRepo section.Repository
	subRepo subject.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - manage database migrations (goose commands)")
	fmt.Println("  seed - load demo sections and subjects")
	fmt.Println("  mktoken -id ID [-name NAME] [-roles ROLE,...] - generate an access token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	mkTokenCmd := flag.NewFlagSet("mktoken", flag.ExitOnError)
	mkTokenID := mkTokenCmd.String("id", "", "The actor's ID.")
	mkTokenName := mkTokenCmd.String("name", "", "The actor's display name.")
	mkTokenRoles := mkTokenCmd.String("roles", core.RoleAdmin, "Comma-separated role claims.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed()
	case "mktoken":
		if err := mkTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mkTokenID == "" {
			mkTokenCmd.Usage()
			return errHelp
		}
		return cli.mkToken(*mkTokenID, *mkTokenName, strings.Split(*mkTokenRoles, ","))
	default:
		cli.printUsage()
		return errHelp
	}
}
