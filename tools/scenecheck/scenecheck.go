package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mogaika/scene_browser/config"
	"github.com/mogaika/scene_browser/fetch"
	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene"
	"github.com/mogaika/scene_browser/scene/object"
)

type report struct {
	URL         string
	Err         error
	Duplicates  []string
	Diagnostics []string
	Media       int
	Failed      int
}

func (r *report) Bad() bool {
	return r.Err != nil || len(r.Duplicates) != 0 || len(r.Diagnostics) != 0 || r.Failed != 0
}

func (r *report) Print() {
	if r.Err != nil {
		fmt.Printf("%s: %v\n", r.URL, r.Err)
		return
	}
	fmt.Printf("%s: %d media, %d failed\n", r.URL, r.Media, r.Failed)
	for _, d := range r.Duplicates {
		fmt.Printf("  duplicate %s\n", d)
	}
	for _, d := range r.Diagnostics {
		fmt.Printf("  %s\n", d)
	}
}

// duplicates lists ids that occur more than once inside one table.
func duplicates(doc *scene.Document) []string {
	tables := map[string][]string{}
	for _, g := range doc.Geometries {
		tables["geometry"] = append(tables["geometry"], g.UUID)
	}
	for _, raw := range doc.Materials {
		var h struct {
			UUID string `json:"uuid"`
		}
		if json.Unmarshal(raw, &h) == nil {
			tables["material"] = append(tables["material"], h.UUID)
		}
	}
	for _, t := range doc.Textures {
		tables["texture"] = append(tables["texture"], t.UUID)
	}
	for _, i := range doc.Images {
		tables["image"] = append(tables["image"], i.UUID)
	}
	for _, v := range doc.Videos {
		tables["video"] = append(tables["video"], v.UUID)
	}
	var walk func(rec *object.Record)
	walk = func(rec *object.Record) {
		tables["object"] = append(tables["object"], rec.UUID)
		for _, c := range rec.Children {
			walk(c)
		}
	}
	if doc.Object != nil {
		walk(doc.Object)
	}

	var out []string
	for table, ids := range tables {
		seen := make(map[string]int, len(ids))
		for _, id := range ids {
			if id != "" {
				seen[id]++
			}
		}
		for id, n := range seen {
			if n > 1 {
				out = append(out, fmt.Sprintf("%s %q x%d", table, id, n))
			}
		}
	}
	sort.Strings(out)
	return out
}

func check(ctx context.Context, f *fetch.Fetcher, loader *scene.Loader, url string, timeout time.Duration) *report {
	r := &report{URL: url}

	text, err := f.FetchText(ctx, url)
	if err != nil {
		r.Err = err
		return r
	}
	var doc scene.Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		r.Err = err
		return r
	}
	r.Duplicates = duplicates(&doc)

	res, err := loader.Load(ctx, url, nil)
	if err != nil {
		r.Err = err
		return r
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := res.Wait(wctx); err != nil {
		r.Err = err
		return r
	}

	for _, a := range res.Media() {
		r.Media++
		for _, h := range a.Handles {
			if h.Failed() {
				r.Failed++
				break
			}
		}
	}
	r.Diagnostics = res.DiagnosticStrings()
	return r
}

// checkAll runs check for every url, at most parallel at a time. Reports keep the order of urls.
func checkAll(ctx context.Context, f *fetch.Fetcher, loader *scene.Loader, urls []string, parallel int, timeout time.Duration) []*report {
	reports := make([]*report, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			reports[i] = check(gctx, f, loader, strings.TrimSpace(url), timeout)
			return nil
		})
	}
	g.Wait()
	return reports
}

func main() {
	var parallel int
	var timeout time.Duration
	var root, logMode string
	flag.IntVar(&parallel, "j", 4, "Documents checked in parallel")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Time to wait for media of one document")
	flag.StringVar(&root, "root", "", "Restrict local paths to this directory")
	flag.StringVar(&logMode, "log", "prod", "Log mode")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: scenecheck [flags] scene.json...\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	l, err := logger.New(logMode)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Sync()

	cfg := config.Default().Media
	cfg.Root = root
	f := fetch.New(cfg, l)
	loader := scene.NewLoader(scene.WithFetcher(f), scene.WithMediaFetcher(f), scene.WithLogger(l))

	reports := checkAll(context.Background(), f, loader, flag.Args(), parallel, timeout)

	bad := 0
	for _, r := range reports {
		r.Print()
		if r.Bad() {
			bad++
		}
	}
	if bad != 0 {
		fmt.Printf("%d of %d documents have problems\n", bad, len(reports))
		os.Exit(1)
	}
}
