// Package cli implements viostreamctl, the operator command line for the Viostream API.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/config"
	"github.com/aura-webinar/viostream/internal/viostream"
)

// errMissingCredentials is returned before any API call when no key pair is set.
var errMissingCredentials = errors.New("access key and API key are required (--access-key/--api-key or VIOSTREAM_ACCESS_KEY/VIOSTREAM_API_KEY)")

type app struct {
	cfg *config.Config
	out io.Writer

	accessKey string
	apiKey    string
	baseURL   string
	timeout   time.Duration
	verbose   bool
	compact   bool
}

// NewRootCommand builds the viostreamctl command tree. Flags default to the values in cfg.
func NewRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	a := &app{cfg: cfg, out: out}

	root := &cobra.Command{
		Use:           "viostreamctl",
		Short:         "Inspect and manage a Viostream account",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.accessKey, "access-key", cfg.Viostream.AccessKey, "Viostream access key (VC-...)")
	pf.StringVar(&a.apiKey, "api-key", cfg.Viostream.APIKey, "Viostream API key")
	pf.StringVar(&a.baseURL, "base-url", cfg.Viostream.BaseURL, "API root")
	pf.DurationVar(&a.timeout, "timeout", cfg.Viostream.Timeout, "per-request timeout")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")
	pf.BoolVar(&a.compact, "compact", false, "print JSON without indentation")

	root.AddCommand(
		a.accountCommand(),
		a.mediaCommand(),
		a.ingestCommand(),
		a.channelsCommand(),
		a.tagsCommand(),
		a.whitelistCommand(),
		a.embedURLCommand(),
		a.tokenCommand(),
	)
	return root
}

func (a *app) client() (*viostream.Client, error) {
	creds := viostream.Credentials{AccessKey: a.accessKey, APIKey: a.apiKey}
	if !creds.Configured() {
		return nil, errMissingCredentials
	}
	logger := zap.NewNop()
	if a.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	return viostream.New(viostream.StaticCredentials(creds),
		viostream.WithBaseURL(a.baseURL),
		viostream.WithTimeout(a.timeout),
		viostream.WithLogger(logger),
	), nil
}

// call runs fn against a fresh client and prints the raw response.
func (a *app) call(cmd *cobra.Command, fn func(ctx context.Context, c *viostream.Client) (json.RawMessage, error)) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	raw, err := fn(cmd.Context(), c)
	if err != nil {
		return err
	}
	return a.print(raw)
}

func (a *app) print(raw []byte) error {
	if a.compact {
		raw = append(pretty.Ugly(raw), '\n')
	} else {
		raw = pretty.Pretty(raw)
	}
	_, err := a.out.Write(raw)
	return err
}

func (a *app) printValue(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return a.print(raw)
}

func (a *app) accountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the account the keys belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.AccountInfo(ctx)
			})
		},
	}
}

// addListFlags binds the shared search/sort/paging flags to p.
func addListFlags(cmd *cobra.Command, p *viostream.ListParams, defaultSort string) {
	f := cmd.Flags()
	f.StringVar(&p.SearchTerm, "search", "", "search term")
	f.StringVar(&p.SortColumn, "sort", defaultSort, "sort column")
	f.StringVar(&p.SortOrder, "order", "desc", "sort order (asc or desc)")
	f.IntVar(&p.PageSize, "page-size", 24, "items per page (max 100)")
	f.IntVar(&p.PageNumber, "page", 1, "page number")
}
