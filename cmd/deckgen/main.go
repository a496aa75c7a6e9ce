// Command deckgen generates one deck from the command line using the configured provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gnemet/DeckForge/internal/ai"
	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/logger"
	"github.com/gnemet/DeckForge/internal/pptx"
)

func main() {
	topic := flag.String("topic", "", "Presentation topic")
	slides := flag.Int("slides", generator.DefaultSlides, "Number of content slides (1-20)")
	points := flag.String("points", "", "Key points, newline separated")
	pointsFile := flag.String("points-file", "", "Path to a file with key points, one per line")
	output := flag.String("output", "", "Path for the generated PPTX (default: <topic>.pptx)")
	provider := flag.String("provider", "", "Override the active AI provider")
	check := flag.Bool("check", false, "Only send a test prompt to the active provider")
	inspect := flag.String("inspect", "", "Print the slide content of an existing PPTX as JSON and exit")
	flag.Parse()

	if *inspect != "" {
		if err := printContent(os.Stdout, *inspect); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if *provider != "" {
		cfg.AI.ActiveProvider = *provider
	}
	name, settings, err := cfg.AI.Active()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if settings.Key == "" {
		fmt.Fprintf(os.Stderr, "AI key for provider %q is empty. Set it in config.yaml or the environment.\n", name)
		os.Exit(1)
	}

	client, err := ai.NewClient(&cfg.AI)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *check {
		os.Exit(runCheck(client, settings.Key))
	}

	if *topic == "" {
		fmt.Println("Usage: deckgen -topic <topic> [-slides N] [-points '<text>' | -points-file <path>] [-output <path>] [-provider <name>]")
		os.Exit(1)
	}

	keyPoints := *points
	if *pointsFile != "" {
		data, err := os.ReadFile(*pointsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading points file: %v\n", err)
			os.Exit(1)
		}
		keyPoints = string(data)
	}

	fmt.Printf("Generating %d slides about %q with %s (%s)...\n", generator.ClampSlideCount(*slides), *topic, name, client.Model())

	orch := generator.NewOrchestrator(client, nil)
	tracker := generator.NewTracker()
	tracker.OnChange(func(s generator.Status) {
		if s.Busy {
			fmt.Printf("  %3d%% %s\n", s.Progress, s.State)
		}
	})

	res, err := orch.Run(context.Background(), generator.Input{
		Topic:      *topic,
		SlideCount: *slides,
		KeyPoints:  keyPoints,
		Credential: settings.Key,
	}, tracker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path := *output
	if path == "" {
		path = res.Filename
	}
	if err := os.WriteFile(path, res.Deck, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("Successfully generated %s (%d slides, %d tokens)\n", path, len(res.Slides)+1, res.Usage.TotalTokens)
	if err := verify(path, len(res.Slides)+1); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func runCheck(client *ai.Client, key string) int {
	fmt.Printf("Active Provider: %s\nModel: %s\nAPI Key detected: %s\n", client.Provider(), client.Model(), maskKey(key))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	out, err := client.Complete(ctx, key, "Say 'The forge is hot!' if you are working correctly.")
	if err != nil {
		fmt.Fprintf(os.Stderr, "AI ERROR: %v\n", err)
		return 1
	}
	fmt.Printf("Response (%s, %d tokens): %s\n", time.Since(start).Round(time.Millisecond), out.Usage.TotalTokens, out.Text)
	return 0
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func printContent(w io.Writer, path string) error {
	content, err := pptx.ExtractSlideContentFile(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// verify re-reads the written file, as a user opening it would.
func verify(path string, want int) error {
	content, err := pptx.ExtractSlideContentFile(path)
	if err != nil {
		return fmt.Errorf("could not re-read %s: %w", path, err)
	}
	if len(content) != want {
		return fmt.Errorf("%s has %d slides, expected %d", path, len(content), want)
	}
	return nil
}
