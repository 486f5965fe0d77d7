package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aura-webinar/viostream/internal/auth"
	"github.com/aura-webinar/viostream/internal/embed"
	"github.com/aura-webinar/viostream/internal/viostream"
)

func (a *app) mediaCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "media", Short: "List and inspect media"}

	var p viostream.ListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListMedia(ctx, p)
			})
		},
	}
	addListFlags(list, &p, viostream.SortCreatedDate)
	list.Flags().StringVar(&p.Expand, "expand", "", "extra fields to include")

	var expand string
	get := &cobra.Command{
		Use:   "get <id-or-key>",
		Short: "Show media detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.MediaDetail(ctx, args[0], expand)
			})
		},
	}
	get.Flags().StringVar(&expand, "expand", "", "extra fields to include")

	byIDs := &cobra.Command{
		Use:   "by-ids <id>...",
		Short: "Fetch several media items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListMediaByIDs(ctx, args)
			})
		},
	}

	cmd.AddCommand(list, get, byIDs)
	return cmd
}

func (a *app) ingestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "ingest", Short: "Create media from a URL and follow it"}

	var req viostream.IngestRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Ask Viostream to pull a video from a public URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Extension != "" && !strings.HasPrefix(req.Extension, ".") {
				req.Extension = "." + req.Extension
			}
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.CreateMediaIngest(ctx, req)
			})
		},
	}
	f := create.Flags()
	f.StringVar(&req.SourceURL, "source-url", "", "public URL of the video file")
	f.StringVar(&req.Filename, "filename", "", "file name without extension")
	f.StringVar(&req.Extension, "extension", "", "file extension, e.g. mp4")
	f.StringVar(&req.ReferenceID, "reference-id", "", "caller reference stored on the media")
	_ = create.MarkFlagRequired("source-url")
	_ = create.MarkFlagRequired("filename")
	_ = create.MarkFlagRequired("extension")

	status := &cobra.Command{
		Use:   "status <ingest-id>",
		Short: "Show ingest status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.IngestStatus(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(create, status)
	return cmd
}

func (a *app) channelsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "channels", Short: "List and inspect channels"}

	var lp viostream.ListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListChannels(ctx, lp)
			})
		},
	}
	addListFlags(list, &lp, viostream.SortCreatedDate)

	var dp viostream.ListParams
	get := &cobra.Command{
		Use:   "get <channel-id>",
		Short: "Show a channel and a page of its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ChannelDetail(ctx, args[0], dp)
			})
		},
	}
	addListFlags(get, &dp, viostream.SortCreatedDate)

	byIDs := &cobra.Command{
		Use:   "by-ids <channel-id>...",
		Short: "Fetch several channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListChannelsByIDs(ctx, args)
			})
		},
	}

	cmd.AddCommand(list, get, byIDs)
	return cmd
}

func (a *app) tagsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "tags", Short: "List tags"}

	var lp viostream.ListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListTags(ctx, lp)
			})
		},
	}
	addListFlags(list, &lp, viostream.SortTagValue)

	var up viostream.ListParams
	usage := &cobra.Command{
		Use:   "usage",
		Short: "List tags with usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListTagsWithUsage(ctx, up)
			})
		},
	}
	addListFlags(usage, &up, viostream.SortTagCount)

	cmd.AddCommand(list, usage)
	return cmd
}

func (a *app) whitelistCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "whitelist", Short: "Manage playback whitelists"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List whitelists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.ListWhitelists(ctx)
			})
		},
	}
	get := &cobra.Command{
		Use:   "get <whitelist-id>",
		Short: "Show a whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.WhitelistDetail(ctx, args[0])
			})
		},
	}

	var title string
	var domains []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a whitelist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(title) > 50 {
				return fmt.Errorf("title is %d characters, the limit is 50", len(title))
			}
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return c.CreateWhitelist(ctx, title, domains)
			})
		},
	}
	create.Flags().StringVar(&title, "title", "", "whitelist title (max 50 characters)")
	create.Flags().StringSliceVar(&domains, "domain", nil, "allowed domain (repeatable)")
	_ = create.MarkFlagRequired("title")

	cmd.AddCommand(list, get, create,
		a.whitelistUpdate("add-domains", "Allow more domains", (*viostream.Client).AddDomainsToWhitelist),
		a.whitelistUpdate("remove-domains", "Stop allowing domains", (*viostream.Client).RemoveDomainsFromWhitelist),
		a.whitelistUpdate("add-media", "Restrict media by public key", (*viostream.Client).AddMediaToWhitelist),
		a.whitelistUpdate("remove-media", "Remove media by public key", (*viostream.Client).RemoveMediaFromWhitelist),
	)
	return cmd
}

type whitelistUpdateFunc func(c *viostream.Client, ctx context.Context, whitelistID string, values []string) (json.RawMessage, error)

func (a *app) whitelistUpdate(use, short string, fn whitelistUpdateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <whitelist-id> <value>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *viostream.Client) (json.RawMessage, error) {
				return fn(c, ctx, args[0], args[1:])
			})
		},
	}
}

func (a *app) embedURLCommand() *cobra.Command {
	var opts embed.PlayerOptions
	cmd := &cobra.Command{
		Use:   "embed-url <share-url-or-key>",
		Short: "Print the player URL for a share link or key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := embed.ExtractKey(args[0])
			if !ok {
				return embed.ErrUnresolvable
			}
			u := embed.BuildURL(key, opts)
			if u == "" {
				return embed.ErrUnresolvable
			}
			_, err := fmt.Fprintln(a.out, u)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.Autoplay, "autoplay", false, "start playing on load")
	cmd.Flags().BoolVar(&opts.Muted, "muted", false, "start muted")
	cmd.Flags().BoolVar(&opts.HideControls, "hide-controls", false, "hide player controls")
	return cmd
}

type tokenOutput struct {
	Token     string `json:"token"`
	Subject   string `json:"subject"`
	Role      string `json:"role"`
	ExpiresIn string `json:"expires_in"`
}

func (a *app) tokenCommand() *cobra.Command {
	var subject, role string
	var hours int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--subject is required")
			}
			svc := auth.NewJWTService(a.cfg.JWT.Secret, hours)
			token, err := svc.Generate(subject, role)
			if err != nil {
				return err
			}
			r, _ := auth.ParseRole(role)
			return a.printValue(tokenOutput{Token: token, Subject: subject, Role: r, ExpiresIn: fmt.Sprintf("%dh", hours)})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "who the token is issued to")
	cmd.Flags().StringVar(&role, "role", auth.RoleEditor, "admin or editor")
	cmd.Flags().IntVar(&hours, "hours", a.cfg.JWT.ExpireHours, "lifetime in hours")
	return cmd
}
