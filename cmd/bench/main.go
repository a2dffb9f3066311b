package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/geonotes98/geonotes"
	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/delivery"
	"github.com/geonotes98/geonotes/pkg/typed"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	stickers := flag.Int("stickers", 100, "Number of stickers to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark desks after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "geonotes_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts := []geonotes.Option{
		geonotes.WithLogger(logger),
		geonotes.WithAutoInit(true),
		geonotes.WithDevSafety(false),
	}

	source, err := geonotes.New(benchDir+"/source", opts...)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Generating %d notes and %d stickers in %s...\n", *count, *stickers, benchDir)
	startGen := time.Now()
	now := core.Millis(time.Now())
	err = source.Store.Transaction(ctx, []core.Collection{core.CollectionNotes, core.CollectionStickers}, func(tx core.Tx) error {
		notes := make([]core.Note, 0, *count)
		for i := range *count {
			notes = append(notes, core.Note{
				ID:        fmt.Sprintf("note-%06d", i),
				Title:     fmt.Sprintf("Benchmark Note %d", i),
				Content:   strings.Repeat("Lorem <ipsum> & dolor. ", 20),
				CreatedAt: now,
				UpdatedAt: now,
				Color:     core.NoteColors[i%len(core.NoteColors)],
			})
		}
		if err := typed.Notes.BulkAdd(ctx, tx, notes); err != nil {
			return err
		}

		list := make([]core.Sticker, 0, *stickers)
		for i := range *stickers {
			list = append(list, core.Sticker{
				ID:        fmt.Sprintf("sticker-%05d", i),
				Asset:     "star.png",
				X:         0.5,
				Y:         0.5,
				Scale:     1,
				ZIndex:    int64(i + 1),
				CreatedAt: now,
			})
		}
		return typed.Stickers.BulkAdd(ctx, tx, list)
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	exporter, err := source.Capsule(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Println("Running Export...")
	startExport := time.Now()
	var doc strings.Builder
	if _, _, err := exporter.Export(ctx, delivery.NewStreamDelivery(&doc)); err != nil {
		panic(err)
	}
	exportDuration := time.Since(startExport)

	target, err := geonotes.New(benchDir+"/target", opts...)
	if err != nil {
		panic(err)
	}
	importer, err := target.Capsule(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Println("Running Import...")
	startImport := time.Now()
	b, err := importer.ImportDocument(ctx, doc.String())
	if err != nil {
		panic(err)
	}
	importDuration := time.Since(startImport)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %d stickers, %d KiB document):\n", len(b.Notes), len(b.Stickers), doc.Len()/1024)
	fmt.Printf("  Export: %v\n", exportDuration)
	fmt.Printf("  Import: %v\n", importDuration)
	fmt.Printf("--------------------------------------------------\n")
}
