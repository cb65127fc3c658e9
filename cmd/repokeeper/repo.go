package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/repository"
	v1 "github.com/repokeeper/repokeeper/infrastructure/api/v1"
	"github.com/repokeeper/repokeeper/infrastructure/api/v1/dto"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordEnv is read before prompting, so scripts never pass a password
// on the command line.
const passwordEnv = "REPOKEEPER_PASSWORD"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// interruptible returns a context cancelled on Ctrl-C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func cloneCmd(envFile *string) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "clone <url>",
		Short: "Clone a repository and start tracking it",
		Long: `Clone a repository into the repository root and write its config file.

With --username the password is read from ` + passwordEnv + `, or prompted
for when stdin is a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, username)
			if err != nil {
				return err
			}

			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := a.repos.Open(args[0], username, password)
			if rec.Invalid() {
				return fmt.Errorf("%q: %w", rec.RedactedURL(), repository.ErrInvalidURL)
			}
			if rec.Tracked() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already tracked at %s\n", cyan(rec.ProjectName()), rec.Location())
				return nil
			}

			ctx, stop := interruptible(cmd)
			defer stop()
			log := service.StartLog(a.journal, service.OperationClone, rec.RedactedURL())
			outcome, err := a.repos.Complete(ctx, log, rec.Clone(ctx, log))
			printOutcome(cmd.OutOrStdout(), rec.ProjectName(), outcome, err)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username for HTTP(S) authentication")

	return cmd
}

func updateCmd(envFile *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "update [name]",
		Short: "Pull the latest changes of a tracked repository",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := interruptible(cmd)
			defer stop()

			if all {
				results, err := a.repos.UpdateAll(ctx, a.journal)
				if err != nil {
					return err
				}
				for _, res := range results {
					printOutcome(cmd.OutOrStdout(), res.ProjectName, res.Outcome, res.Err)
				}
				failed := lo.CountBy(results, func(res service.UpdateResult) bool {
					return res.Outcome == service.OutcomeFailed
				})
				if failed > 0 {
					return fmt.Errorf("%d of %d repositories failed to update", failed, len(results))
				}
				return nil
			}

			rec, err := a.repos.Get(ctx, args[0])
			if err != nil {
				return err
			}
			log := service.StartLog(a.journal, service.OperationUpdate, rec.ProjectName())
			outcome, err := a.repos.Complete(ctx, log, rec.Update(ctx, log))
			printOutcome(cmd.OutOrStdout(), rec.ProjectName(), outcome, err)
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Update every tracked repository")

	return cmd
}

func compressCmd(envFile *string) *cobra.Command {
	var subdir string

	cmd := &cobra.Command{
		Use:   "compress <name>",
		Short: "Zip a tracked repository into the archive root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := interruptible(cmd)
			defer stop()

			rec, err := a.repos.Get(ctx, args[0])
			if err != nil {
				return err
			}
			log := service.StartLog(a.journal, service.OperationCompress, rec.ProjectName())
			outcome, err := a.repos.Complete(ctx, log, rec.Compress(ctx, subdir, log))
			printOutcome(cmd.OutOrStdout(), rec.ProjectName(), outcome, err)
			if err == nil && outcome == service.OutcomeSucceeded {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rec.ArchivePath())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&subdir, "subdirectory", "", "Only compress this directory of the working copy")

	return cmd
}

func lsCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <name> [path]",
		Short: "List the directories of a tracked repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.repos.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			dirs, err := rec.ListDirectory(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, dir := range dirs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/\n", dir)
			}
			return nil
		},
	}
}

func deleteCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a repository's config file, working copy and archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.repos.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec.Invalid() {
				return fmt.Errorf("%s: %w", args[0], repository.ErrInvalidURL)
			}
			log := service.StartLog(a.journal, service.OperationDeleteAll, rec.ProjectName())
			if err := rec.DeleteAll(cmd.Context(), log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cyan(rec.ProjectName()), green("removed"))
			return nil
		},
	}
}

func listCmd(envFile *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.repos.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			data := make([]dto.RepositoryResponse, 0, len(records))
			for _, rec := range records {
				data = append(data, v1.RepositoryToDTO(rec))
			}
			return render(cmd.OutOrStdout(), output, data, func() {
				printRecords(cmd.OutOrStdout(), records)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, yaml")

	return cmd
}

func printRecords(w io.Writer, records []*service.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no repositories tracked")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSTATE\tURL")
	for _, rec := range records {
		state := yellow("not cloned")
		switch {
		case rec.Invalid():
			state = red("invalid")
		case rec.Cloned():
			state = green("cloned")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ProjectName(), rec.URLType(), state, rec.RedactedURL())
	}
	_ = tw.Flush()
}

func printOutcome(w io.Writer, name string, outcome service.Outcome, err error) {
	label := string(outcome)
	switch outcome {
	case service.OutcomeSucceeded:
		label = green(label)
	case service.OutcomeSkipped:
		label = yellow(label)
	default:
		label = red(label)
	}
	if err != nil {
		fmt.Fprintf(w, "%s %s: %s\n", cyan(name), label, strings.TrimSpace(err.Error()))
		return
	}
	fmt.Fprintf(w, "%s %s\n", cyan(name), label)
}

// readPassword returns the password for username from the environment or
// a terminal prompt. Without a username there is nothing to read.
func readPassword(cmd *cobra.Command, username string) (string, error) {
	if username == "" {
		return "", nil
	}
	if p, ok := os.LookupEnv(passwordEnv); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", username)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
