package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oggyb/elk-messaging/internal/elk"
	"github.com/oggyb/elk-messaging/internal/logger"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagUsername   = "username"
	flagPassword   = "password"
	flagBaseDomain = "base-domain"
	flagTimeout    = "timeout"
	flagJSON       = "json"
	flagLogLevel   = "log-level"

	envPrefix = "ELK"
)

// SMSCommand runs the sms subcommands against one gateway client.
type SMSCommand struct {
	Client *elk.Client
	JSON   bool
	Out    io.Writer
}

// newRootCmd builds the command tree. Persistent flags fall back to ELK_*
// environment variables through v. opts are applied to every gateway client.
func newRootCmd(out, errOut io.Writer, v *viper.Viper, opts ...elk.Option) *cobra.Command {
	root := &cobra.Command{
		Use:           "elk",
		Short:         "46elks SMS/MMS gateway command-line interface",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String(flagUsername, "", "API username (env ELK_USERNAME)")
	pf.String(flagPassword, "", "API password (env ELK_PASSWORD)")
	pf.String(flagBaseDomain, "", "gateway domain, default "+elk.BaseDomain+" (env ELK_BASE_DOMAIN)")
	pf.Duration(flagTimeout, 10*time.Second, "request timeout (env ELK_TIMEOUT)")
	pf.Bool(flagJSON, false, "print records as indented JSON")
	pf.String(flagLogLevel, "warn", "client log level (env ELK_LOG_LEVEL)")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(pf)

	build := func() *SMSCommand {
		log := logger.Component(logger.New(v.GetString(flagLogLevel), logger.FormatConsole, errOut), "elk")
		client := elk.NewClient(elk.Config{
			Username:   v.GetString(flagUsername),
			Password:   v.GetString(flagPassword),
			BaseDomain: v.GetString(flagBaseDomain),
			Timeout:    v.GetDuration(flagTimeout),
		}, append([]elk.Option{elk.WithLogger(log)}, opts...)...)

		return &SMSCommand{Client: client, JSON: v.GetBool(flagJSON), Out: out}
	}

	sms := &cobra.Command{Use: "sms", Short: "Send, list and reload SMS"}
	sms.AddCommand(sendCmd(build), listCmd(build), reloadCmd(build))
	root.AddCommand(sms)

	return root
}

func sendCmd(build func() *SMSCommand) *cobra.Command {
	var p elk.SendParams
	var to string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an SMS, or an MMS when --image is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to != "" {
				p.To = strings.Split(to, ",")
			}

			c := build()

			records, err := c.Client.SendSMS(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("failed to send SMS: %w", err)
			}
			return c.print(records)
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.From, "from", "", "sender number or alphanumeric id")
	f.StringVar(&to, "to", "", "recipient, or several separated by commas")
	f.StringVar(&p.Message, "message", "", "message text")
	f.StringVar(&p.Image, "image", "", "image URL, sends an MMS")
	f.BoolVar(&p.Flash, "flash", false, "send as flash SMS")
	f.StringVar(&p.WhenDelivered, "when-delivered", "", "delivery report callback URL")

	return cmd
}

func listCmd(build func() *SMSCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the latest messages known to the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := build()

			records, err := c.Client.ListSMS(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list SMS: %w", err)
			}
			return c.print(records)
		},
	}
}

func reloadCmd(build func() *SMSCommand) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Fetch the current state of one message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := build()

			record, err := c.Client.GetSMS(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to reload SMS %q: %w", id, err)
			}
			return c.print([]*elk.SMS{record})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "gateway message id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (c *SMSCommand) print(records []*elk.SMS) error {
	if c.JSON {
		return c.outputJSON(records)
	}
	c.outputTable(records)
	return nil
}

// outputTable formats records as a markdown-style table.
func (c *SMSCommand) outputTable(records []*elk.SMS) {
	table := tablewriter.NewWriter(c.Out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "ID", "Direction", "From", "To", "Message", "Status", "Created"})

	for i, r := range records {
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.MessageID,
			r.Direction,
			r.From,
			r.To,
			truncate(r.Message, 40),
			r.Status,
			formatCreated(r.CreatedAt),
		})
	}

	table.Render()
}

// outputJSON formats records as indented JSON.
func (c *SMSCommand) outputJSON(records []*elk.SMS) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(c.Out, string(data))
	return err
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}

func formatCreated(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
