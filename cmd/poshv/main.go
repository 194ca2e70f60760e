// Poshv - Hyper-V LBFO to SET migration tool
//
// Poshv migrates a Hyper-V host's virtual switches from legacy LBFO team
// uplinks to switch-embedded teaming (SET) without losing network identity:
// IP addresses, VLANs, bandwidth reservations, DNS behavior, and guest VM
// connections all survive the cutover. When the host is a failover-cluster
// member the node is drained before teardown and resumed afterwards.
//
// The tool drives the host over SSH (Windows OpenSSH server), executing
// PowerShell cmdlets and decoding their JSON output:
//
//	poshv -H hv-03 list                        # eligibility survey
//	poshv -H hv-03 show ConvergedSwitch        # snapshot preview
//	poshv -H hv-03 migrate --switch-name ConvergedSwitch
//	poshv -H hv-03 migrate --plan plan.yaml --force
//	poshv journal --run <run-id>               # past run records
//
// Migration is irreversible: once a legacy switch and team are destroyed,
// the only path to a working network is completing the rebuild. The tool
// journals every captured snapshot before teardown for that reason.
package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lattisimo/posher-v/pkg/cli"
	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/journal"
	"github.com/lattisimo/posher-v/pkg/settings"
	"github.com/lattisimo/posher-v/pkg/util"
	"github.com/lattisimo/posher-v/pkg/version"
)

var (
	// Global context flags
	hostName string // -H, --host
	sshUser  string // -u, --user

	// Global option flags
	verbose    bool
	jsonOutput bool

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// exitCode is set by commands that report a distinct status (migrate uses 2
// for "matched but none eligible") and applied after every defer has run.
var exitCode int

var rootCmd = &cobra.Command{
	Use:               "poshv",
	Short:             "Hyper-V LBFO to SET switch migration tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Poshv migrates Hyper-V virtual switches from legacy LBFO teams to
switch-embedded teaming (SET), replaying the full network identity of every
management adapter onto the rebuilt switch.

  poshv -H <host> list
  poshv -H <host> migrate --switch-name <name> [flags]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isHelpOrVersion(cmd) {
			return nil
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if hostName == "" {
			hostName = userSettings.DefaultHost
		}
		if sshUser == "" {
			sshUser = userSettings.DefaultUser
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("info")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&hostName, "host", "H", "", "Hyper-V host to operate on (host[:port])")
	rootCmd.PersistentFlags().StringVarP(&sshUser, "user", "u", "", "SSH user on the host")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{listCmd, showCmd, journalCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	}

	rootCmd.AddCommand(listCmd, showCmd, migrateCmd, journalCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("poshv %s\n", version.Info())
	},
}

// connect dials the target host and returns the SSH session plus the
// platform and cluster capabilities bound to it.
func connect() (*hyperv.SSHSession, *hyperv.PowerShellPlatform, *hyperv.PowerShellCluster, error) {
	if hostName == "" {
		return nil, nil, nil, fmt.Errorf("host required: use -H <host> flag or set a default host: %w", util.ErrNotConnected)
	}
	if sshUser == "" {
		return nil, nil, nil, fmt.Errorf("user required: use -u <user> flag or set a default user: %w", util.ErrNotConnected)
	}

	password, err := resolvePassword()
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := hyperv.Dial(hyperv.SSHConfig{Host: hostName, User: sshUser, Password: password})
	if err != nil {
		return nil, nil, nil, err
	}
	return session, hyperv.NewPowerShellPlatform(session), hyperv.NewPowerShellCluster(session), nil
}

// resolvePassword takes the SSH password from POSHV_SSH_PASSWORD or, when
// stdin is a terminal, prompts without echo.
func resolvePassword() (string, error) {
	if pw := os.Getenv("POSHV_SSH_PASSWORD"); pw != "" {
		return pw, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no password: set POSHV_SSH_PASSWORD or run interactively")
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", sshUser, hostName)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// openJournal opens the configured journal store: Redis when journal_redis
// is set, the local JSON-lines file otherwise.
func openJournal() (journal.Store, error) {
	if userSettings.JournalRedis != "" {
		return journal.NewRedisStore(userSettings.JournalRedis, "", 0)
	}
	path := userSettings.JournalPath
	if path == "" {
		path = journal.DefaultJournalPath()
	}
	return journal.NewFileStore(path, journal.RotationConfig{
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxBackups: 10,
	})
}

func isHelpOrVersion(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version":
			return true
		}
	}
	return false
}

// Color helpers — delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
