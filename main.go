package main

import (
	"flag"
	"os"

	"ferro.is/voxic/cmd"
	"ferro.is/voxic/internal/brand"
	"ferro.is/voxic/internal/i18n"
	"ferro.is/voxic/internal/validation"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		configFile := serveFlags.String("config", brand.DefaultConfigPath(), "Configuration file")
		serveFlags.StringVar(configFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
		serveFlags.Parse(os.Args[2:])

		if err := cmd.RunServe(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Serve failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("v", false, "Verbose output")
		checkFlags.Parse(os.Args[2:])

		confPath := "/etc/asterisk/pjsip.conf"
		if len(checkFlags.Args()) > 0 {
			confPath = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(confPath, *verbose); err != nil {
			printer.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "list":
		listFlags := flag.NewFlagSet("list", flag.ExitOnError)
		format := listFlags.String("format", "table", "Output format: table, json or yaml")
		listFlags.StringVar(format, "f", "table", "Output format (short)")
		listFlags.Parse(os.Args[2:])

		confPath := "/etc/asterisk/pjsip.conf"
		if len(listFlags.Args()) > 0 {
			confPath = listFlags.Arg(0)
		}

		if err := cmd.RunList(confPath, *format); err != nil {
			printer.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}

	case "diff":
		if len(os.Args) < 4 {
			printer.Println("Usage: " + brand.BinaryName + " diff <pjsip.conf> <backup-version>")
			os.Exit(1)
		}
		version, err := validation.ValidateBackupVersion(os.Args[3])
		if err != nil {
			printer.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if err := cmd.RunDiff(os.Args[2], version); err != nil {
			printer.Fprintf(os.Stderr, "Diff failed: %v\n", err)
			os.Exit(1)
		}

	case "reload":
		reloadFlags := flag.NewFlagSet("reload", flag.ExitOnError)
		configFile := reloadFlags.String("config", brand.DefaultConfigPath(), "Configuration file")
		reloadFlags.Parse(os.Args[2:])

		if err := cmd.RunReload(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			os.Exit(1)
		}

	case "backup":
		runBackup(os.Args[2:])

	case "apikey":
		name := ""
		if len(os.Args) > 2 {
			name = os.Args[2]
		}
		if err := cmd.RunAPIKeyGenerate(name); err != nil {
			printer.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)
		printer.Printf("Build: %s\n", brand.BuildTime)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runBackup(args []string) {
	if len(args) < 1 {
		printer.Println("Usage: " + brand.BinaryName + " backup <create|list|restore|pin|unpin> [args]")
		os.Exit(1)
	}

	backupFlags := flag.NewFlagSet("backup", flag.ExitOnError)
	configFile := backupFlags.String("config", brand.DefaultConfigPath(), "Configuration file")
	description := backupFlags.String("description", "", "Backup description (create)")
	backupFlags.Parse(args[1:])

	var err error
	switch args[0] {
	case "create":
		err = cmd.RunBackupCreate(*configFile, *description)
	case "list":
		err = cmd.RunBackupList(*configFile)
	case "restore", "pin", "unpin":
		rest := backupFlags.Args()
		if len(rest) < 1 {
			printer.Println("Usage: " + brand.BinaryName + " backup " + args[0] + " <version>")
			os.Exit(1)
		}
		var version int
		version, err = validation.ValidateBackupVersion(rest[0])
		if err != nil {
			break
		}
		switch args[0] {
		case "restore":
			err = cmd.RunBackupRestore(*configFile, version)
		case "pin":
			err = cmd.RunBackupPin(*configFile, version, true)
		case "unpin":
			err = cmd.RunBackupPin(*configFile, version, false)
		}
	default:
		printer.Printf("Unknown backup command: %s\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		printer.Fprintf(os.Stderr, "Backup %s failed: %v\n", args[0], err)
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage: %s <command> [options]

Commands:
  serve     Run the provisioning daemon
  check     Validate a pjsip.conf and its endpoints
  list      List endpoints in a pjsip.conf
  diff      Compare a backup version with the current file
  reload    Ask Asterisk to re-read the managed file
  backup    Manage backups (create, list, restore, pin, unpin)
  apikey    Generate an API key and its config block
  version   Show version information
  help      Show this help

Run '%s <command> -h' for command options.
`, brand.Name, brand.Description, brand.BinaryName, brand.BinaryName)
}
