// Command iptvdeck: browse an Xtream codes portal from the terminal.
//
//	login   Verify portal credentials and print account status
//	browse  Interactive catalog browser (live / movies / series)
//	epg     Correlate a channel name against the guide and print now/next
//	url     Print the playback URL for a stream id (no portal round trip)
//	search  List catalog entries of one tab matching a query
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/browse"
	"github.com/iptvdeck/iptvdeck/internal/catalog"
	"github.com/iptvdeck/iptvdeck/internal/config"
	"github.com/iptvdeck/iptvdeck/internal/health"
	"github.com/iptvdeck/iptvdeck/internal/metrics"
	"github.com/iptvdeck/iptvdeck/internal/nav"
	"github.com/iptvdeck/iptvdeck/internal/safeurl"
	"github.com/iptvdeck/iptvdeck/internal/search"
	"github.com/iptvdeck/iptvdeck/internal/session"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// parseTab maps a -tab flag value to a catalog tab.
func parseTab(s string) (catalog.Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "":
		return catalog.TabLive, nil
	case "movies", "movie", "vod":
		return catalog.TabMovies, nil
	case "series":
		return catalog.TabSeries, nil
	}
	return catalog.TabLive, fmt.Errorf("unknown tab %q; use live, movies or series", s)
}

// login authenticates the session from config plus optional flag overrides.
// The reachability check only warns; the portal may still answer player_api
// while rejecting a bare GET.
func login(ctx context.Context, cfg *config.Config, s *session.Session, m3uURL string) error {
	if m3uURL != "" {
		server, user, _, err := session.ParseM3UPlusURL(m3uURL)
		if err != nil {
			return err
		}
		log.Printf("Logging in to %s as %s (from M3U URL)", safeurl.Redact(server), user)
		_, err = s.LoginM3U(ctx, m3uURL)
		return err
	}
	if cfg.ServerURL == "" || cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("set IPTVDECK_SERVER, IPTVDECK_USERNAME and IPTVDECK_PASSWORD in .env, or pass -m3u")
	}
	if !safeurl.IsHTTPOrHTTPS(cfg.ServerURL) {
		return fmt.Errorf("server %q must be an http(s) URL", safeurl.Redact(cfg.ServerURL))
	}
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := health.CheckPortal(checkCtx, cfg.ServerURL); err != nil {
		log.Printf("Portal check warning: %v", err)
	}
	log.Printf("Logging in to %s as %s", safeurl.Redact(cfg.ServerURL), cfg.Username)
	_, err := s.Login(ctx, cfg.ServerURL, cfg.Username, cfg.Password)
	return err
}

// refreshGuideSync loads the guide and blocks until the load finishes.
func refreshGuideSync(ctx context.Context, s *session.Session) error {
	done := make(chan error, 1)
	if err := s.RefreshGuide(ctx, func(err error) { done <- err }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tabNames collects every entry name of one tab, category by category.
func tabNames(ctx context.Context, s *session.Session, tab catalog.Tab) ([]string, error) {
	client := s.Client()
	cats, err := client.Categories(ctx, tab)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, cat := range cats {
		switch tab {
		case catalog.TabLive:
			chans, err := client.LiveStreams(ctx, cat.ID)
			if err != nil {
				return nil, err
			}
			for _, ch := range chans {
				names = append(names, ch.Name)
			}
		case catalog.TabMovies:
			movies, err := client.VODStreams(ctx, cat.ID)
			if err != nil {
				return nil, err
			}
			for _, m := range movies {
				names = append(names, m.Name)
			}
		case catalog.TabSeries:
			heads, err := client.Series(ctx, cat.ID)
			if err != nil {
				return nil, err
			}
			for _, h := range heads {
				names = append(names, h.Name)
			}
		}
	}
	return names, nil
}

// printView renders one list view with row numbers; the cursor marker sits
// on the remembered scroll row.
func printView(v *browse.View, overlay *search.Overlay, filtered search.Result) {
	rows := v.Rows
	cursor := v.Scroll
	if overlay.Active() {
		rows = filtered.Rows
		cursor = filtered.Cursor
		fmt.Printf("-- %s / %s (search %q) --\n", v.Tab, v.Level, overlay.Query())
	} else {
		fmt.Printf("-- %s / %s --\n", v.Tab, v.Level)
	}
	for i, row := range rows {
		marker := "  "
		if i == cursor {
			marker = "> "
		}
		fmt.Printf("%s%3d  %s\n", marker, i, row)
	}
}

func printPlay(res *browse.Result) {
	fmt.Printf("PLAY %s\n", res.Play)
	if res.Annotation != "" {
		fmt.Printf("     %s\n", res.Annotation)
	}
	if res.Description != "" {
		fmt.Printf("     %s\n", res.Description)
	}
}

// runBrowse is the interactive loop. Commands: a bare row number opens the
// row, "back" pops, "tab X" switches (each tab keeps its place), "search Q"
// filters the current rows, "clear" drops the filter, "sort" orders the
// list A-Z, "guide" reloads the EPG, "quit" exits.
func runBrowse(ctx context.Context, s *session.Session, startTab catalog.Tab) error {
	b := browse.New(s)
	view, err := b.Enter(ctx, startTab)
	if err != nil {
		return err
	}

	// Guide loads in the background; rows pick up annotations on the next
	// render after it lands.
	if err := s.RefreshGuide(ctx, func(err error) {
		if err != nil {
			log.Printf("Guide refresh failed: %v", err)
			return
		}
		ix := s.Guide.Index()
		log.Printf("Guide ready: %d channels, %d programs", ix.ChannelCount(), ix.ProgramCount())
	}); err != nil {
		log.Printf("Guide refresh not started: %v", err)
	}

	overlay := &search.Overlay{}
	var filtered search.Result
	printView(view, overlay, filtered)

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		cmd := strings.ToLower(fields[0])

		// A bare number activates that row.
		if n, err := strconv.Atoi(cmd); err == nil {
			item := n
			if overlay.Active() {
				if n < 0 || n >= len(filtered.Indices) || filtered.Indices[n] < 0 {
					fmt.Println("nothing to open")
					continue
				}
				item = filtered.Indices[n]
				view.Rows, view.Scroll = overlay.Close()
			}
			res, err := b.Do(ctx, view, nav.Open(item), item)
			if err != nil {
				log.Printf("Open failed: %v", err)
				continue
			}
			if res.Play != "" {
				printPlay(res)
				continue
			}
			view = res.View
			printView(view, overlay, filtered)
			continue
		}

		switch cmd {
		case "back", "b":
			if overlay.Active() {
				view.Rows, view.Scroll = overlay.Close()
				printView(view, overlay, filtered)
				continue
			}
			res, err := b.Do(ctx, view, nav.GoBack(), view.Scroll)
			if err != nil {
				log.Printf("Back failed: %v", err)
				continue
			}
			view = res.View
			printView(view, overlay, filtered)
		case "tab":
			if len(fields) < 2 {
				fmt.Println("usage: tab live|movies|series")
				continue
			}
			tab, err := parseTab(fields[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			if overlay.Active() {
				view.Rows, view.Scroll = overlay.Close()
			}
			v, err := b.Enter(ctx, tab)
			if err != nil {
				log.Printf("Tab switch failed: %v", err)
				continue
			}
			view = v
			printView(view, overlay, filtered)
		case "search", "/":
			if len(fields) < 2 {
				fmt.Println("usage: search <query>")
				continue
			}
			if !overlay.Active() {
				overlay.Open(view.Rows, view.Scroll)
			}
			filtered = overlay.SetQuery(strings.Join(fields[1:], " "))
			printView(view, overlay, filtered)
		case "clear":
			if overlay.Active() {
				view.Rows, view.Scroll = overlay.Close()
			}
			printView(view, overlay, filtered)
		case "sort":
			if overlay.Active() {
				view.Rows, view.Scroll = overlay.Close()
			}
			b.Sort(view)
			printView(view, overlay, filtered)
		case "guide":
			if err := s.RefreshGuide(ctx, func(err error) {
				if err != nil {
					log.Printf("Guide refresh failed: %v", err)
				}
			}); err != nil {
				log.Printf("Guide refresh not started: %v", err)
			}
		case "render":
			b.Rerender(view)
			printView(view, overlay, filtered)
		case "quit", "q", "exit":
			return nil
		case "help", "?":
			fmt.Println("commands: <n> open row | back | tab live|movies|series | search <q> | clear | sort | guide | render | quit")
		default:
			fmt.Printf("unknown command %q (try help)\n", cmd)
		}
	}
}

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[iptvdeck] ")

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginServer := loginCmd.String("server", "", "Portal URL (default: IPTVDECK_SERVER)")
	loginUser := loginCmd.String("username", "", "Username (default: IPTVDECK_USERNAME)")
	loginPass := loginCmd.String("password", "", "Password (default: IPTVDECK_PASSWORD)")
	loginM3U := loginCmd.String("m3u", "", "M3U plus URL; credentials are taken from it instead of the flags above")

	browseCmd := flag.NewFlagSet("browse", flag.ExitOnError)
	browseTab := browseCmd.String("tab", "live", "Starting tab: live, movies or series")
	browseM3U := browseCmd.String("m3u", "", "M3U plus URL (alternative to env credentials)")

	epgCmd := flag.NewFlagSet("epg", flag.ExitOnError)
	epgChannel := epgCmd.String("channel", "", "Channel name to correlate")
	epgID := epgCmd.String("id", "", "Guide channel id (skips name matching when the guide carries it)")
	epgList := epgCmd.Bool("list", false, "List guide channel names instead of correlating")

	urlCmd := flag.NewFlagSet("url", flag.ExitOnError)
	urlKind := urlCmd.String("kind", "live", "Stream kind: live, movie or series")
	urlID := urlCmd.String("id", "", "Stream id")
	urlExt := urlCmd.String("ext", "", "Container extension (default m3u8)")

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	searchTab := searchCmd.String("tab", "live", "Tab to search: live, movies or series")
	searchQuery := searchCmd.String("query", "", "Substring to match (case-insensitive)")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <login|browse|epg|url|search> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  login   Verify portal credentials and print account status\n")
		fmt.Fprintf(os.Stderr, "  browse  Interactive catalog browser\n")
		fmt.Fprintf(os.Stderr, "  epg     Print now/next for a channel name (use -list for guide channels)\n")
		fmt.Fprintf(os.Stderr, "  url     Print the playback URL for a stream id\n")
		fmt.Fprintf(os.Stderr, "  search  List entries of one tab matching a query\n")
		os.Exit(1)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	switch os.Args[1] {
	case "login":
		_ = loginCmd.Parse(os.Args[2:])
		if *loginServer != "" {
			cfg.ServerURL = strings.TrimSuffix(*loginServer, "/")
		}
		if *loginUser != "" {
			cfg.Username = *loginUser
		}
		if *loginPass != "" {
			cfg.Password = *loginPass
		}
		s := session.New(cfg)
		defer s.Close()
		if err := login(ctx, cfg, s, *loginM3U); err != nil {
			log.Printf("Login failed: %v", err)
			os.Exit(1)
		}
		acct := s.Account()
		fmt.Printf("Logged in: %s (status %s", acct.Username, acct.Status)
		if acct.ExpiresAt != "" {
			fmt.Printf(", expires %s", acct.ExpiresAt)
		}
		fmt.Println(")")

	case "browse":
		_ = browseCmd.Parse(os.Args[2:])
		tab, err := parseTab(*browseTab)
		if err != nil {
			log.Print(err)
			os.Exit(1)
		}
		s := session.New(cfg)
		defer s.Close()
		if err := login(ctx, cfg, s, *browseM3U); err != nil {
			log.Printf("Login failed: %v", err)
			os.Exit(1)
		}
		if err := runBrowse(ctx, s, tab); err != nil {
			log.Printf("Browse failed: %v", err)
			os.Exit(1)
		}

	case "epg":
		_ = epgCmd.Parse(os.Args[2:])
		if !*epgList && *epgChannel == "" {
			log.Print("Set -channel=NAME (or -list)")
			os.Exit(1)
		}
		s := session.New(cfg)
		defer s.Close()
		if err := login(ctx, cfg, s, ""); err != nil {
			log.Printf("Login failed: %v", err)
			os.Exit(1)
		}
		if err := refreshGuideSync(ctx, s); err != nil {
			log.Printf("Guide load failed: %v", err)
			os.Exit(1)
		}
		ix := s.Guide.Index()
		if *epgList {
			for _, name := range ix.Names() {
				fmt.Println(name)
			}
			return
		}
		ch := catalog.Channel{Name: *epgChannel, GuideChannelID: *epgID}
		guideID, err := s.Guide.Correlate(ch)
		if err != nil {
			log.Printf("No guide match for %q: %v", *epgChannel, err)
			os.Exit(1)
		}
		current, next, err := s.Guide.NowNext(ch, time.Now())
		if err != nil {
			log.Printf("Now/next failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("%s -> guide channel %s (%d programs)\n", *epgChannel, guideID, len(ix.Programs(guideID)))
		if current != nil {
			fmt.Printf("now:  %s (%s - %s)\n", current.Title,
				current.Start.Local().Format("03:04 PM"), current.Stop.Local().Format("03:04 PM"))
			if current.Description != "" {
				fmt.Printf("      %s\n", current.Description)
			}
		} else {
			fmt.Println("now:  no current program")
		}
		if next != nil {
			fmt.Printf("next: %s (%s - %s)\n", next.Title,
				next.Start.Local().Format("03:04 PM"), next.Stop.Local().Format("03:04 PM"))
		}

	case "url":
		_ = urlCmd.Parse(os.Args[2:])
		if *urlID == "" {
			log.Print("Set -id=STREAM_ID")
			os.Exit(1)
		}
		var kind xtream.StreamKind
		switch strings.ToLower(*urlKind) {
		case "live":
			kind = xtream.KindLive
		case "movie", "vod":
			kind = xtream.KindMovie
		case "series", "episode":
			kind = xtream.KindSeries
		default:
			log.Printf("Unknown -kind=%q; use live, movie or series", *urlKind)
			os.Exit(1)
		}
		// URL building is local; no auth round trip needed.
		client, err := xtream.New(cfg.ServerURL, cfg.Username, cfg.Password, 0, nil)
		if err != nil {
			log.Printf("Bad portal config: %v", err)
			os.Exit(1)
		}
		fmt.Println(client.StreamURL(kind, *urlID, *urlExt))

	case "search":
		_ = searchCmd.Parse(os.Args[2:])
		if *searchQuery == "" {
			log.Print("Set -query=TEXT")
			os.Exit(1)
		}
		tab, err := parseTab(*searchTab)
		if err != nil {
			log.Print(err)
			os.Exit(1)
		}
		s := session.New(cfg)
		defer s.Close()
		if err := login(ctx, cfg, s, ""); err != nil {
			log.Printf("Login failed: %v", err)
			os.Exit(1)
		}
		names, err := tabNames(ctx, s, tab)
		if err != nil {
			log.Printf("Catalog fetch failed: %v", err)
			os.Exit(1)
		}
		overlay := &search.Overlay{}
		overlay.Open(names, 0)
		res := overlay.SetQuery(*searchQuery)
		for i, row := range res.Rows {
			marker := "  "
			if i == res.Cursor {
				marker = "> "
			}
			fmt.Printf("%s%s\n", marker, row)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
