package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/vkaudio/internal/config"
	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/tui"
	"github.com/mmcdole/vkaudio/internal/tui/styles"
	"github.com/mmcdole/vkaudio/internal/vk"
)

var (
	searchCount int
	searchFuzzy bool
	audiosCount int
	listArtist  string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog and import the results",
	Long: `Search the audio catalog and import every new track into the library.

Without a query the last remembered query is used. The query, count and
fuzzy flag are remembered for the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var audiosCmd = &cobra.Command{
	Use:   "audios",
	Short: "Import your own audio list",
	Args:  cobra.NoArgs,
	RunE:  runAudios,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured access token",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain and save an access token",
	Long: `Print the authorization URL for auth.app_id. Open it in a browser, allow
access, then paste the address of the page you are redirected to.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List imported tracks, optionally fuzzy filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var playCmd = &cobra.Command{
	Use:   "play <filter>",
	Short: "Play the best matching imported track",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every imported track from the library",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", 0, "number of results (default: search.count)")
	searchCmd.Flags().BoolVarP(&searchFuzzy, "fuzzy", "f", false, "let the catalog autocomplete the query (default: search.fuzzy)")
	audiosCmd.Flags().IntVarP(&audiosCount, "count", "n", 0, "number of tracks (default: search.count)")
	listCmd.Flags().StringVarP(&listArtist, "artist", "a", "", "only tracks whose artist matches")
	playCmd.Flags().StringVarP(&listArtist, "artist", "a", "", "only tracks whose artist matches")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := current

	query := a.cfg.Search.Query
	if len(args) == 1 {
		query = strings.TrimSpace(args[0])
	}
	if query == "" {
		return domain.ErrEmptyQuery
	}

	fuzzy := a.cfg.Search.Fuzzy
	if cmd.Flags().Changed("fuzzy") {
		fuzzy = searchFuzzy
	}

	if err := a.requireToken(ctx); err != nil {
		return err
	}

	req := a.cfg.Request(query, searchCount, fuzzy)
	if err := config.SaveSearchDefaults(req.Query, req.Count, req.Fuzzy); err != nil {
		a.logger.Warn("failed to remember search defaults", "error", err)
	}

	out, err := a.catalog.Search(ctx, req)
	if err != nil {
		return err
	}
	tui.RenderOutcome(cmd.OutOrStdout(), out)
	return nil
}

func runAudios(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := current

	if err := a.requireToken(ctx); err != nil {
		return err
	}

	out, err := a.catalog.ListUserAudios(ctx, a.cfg.Request("", audiosCount, false))
	if err != nil {
		return err
	}
	tui.RenderOutcome(cmd.OutOrStdout(), out)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := current.requireToken(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render("✓ Token is valid"))
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()

	if a.cfg.Auth.AppID == "" {
		return errors.New("auth.app_id is not set; add it to the config file or VKAUDIO_AUTH_APP_ID")
	}

	fmt.Fprintln(out, "Open this address in a browser and allow access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.AccentStyle.Render(vk.AuthorizeURL(a.cfg.Auth.AppID)))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the address you were redirected to: ")

	input, err := tui.ReadLine(cmd.Context(), bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	token, err := vk.TokenFromRedirect(input)
	if err != nil {
		return err
	}

	if err := config.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	a.cfg.Auth.Token = token

	if err := a.requireToken(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.SuccessStyle.Render("✓ Token saved"))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a := current

	records, err := a.catalog.Records()
	if err != nil {
		return err
	}

	var filter string
	if len(args) == 1 {
		filter = args[0]
	}

	tui.RenderRecords(cmd.OutOrStdout(), a.search.Filter(records, filter, listArtist), terminalWidth())
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	a := current

	records, err := a.catalog.Records()
	if err != nil {
		return err
	}

	rec, ok := a.search.Best(records, args[0], listArtist)
	if !ok {
		return fmt.Errorf("no imported track matches %q", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Playing %s (%s)\n", styles.TitleStyle.Render(rec.Artist+" - "+rec.Title), rec.FormattedDuration())
	return a.player.Play(rec.URL)
}

func runClear(cmd *cobra.Command, args []string) error {
	removed, err := current.catalog.Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tracks\n", removed)
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w
	}
	return 0
}
