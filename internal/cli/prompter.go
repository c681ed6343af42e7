package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/moamoa/moa-engine/internal/model"
)

// ResolutionStats summarizes one interactive resolution session.
type ResolutionStats struct {
	Duration     time.Duration
	TotalCases   int
	KeptFirst    int
	KeptSecond   int
	KeptBoth     int
	DeletedBoth  int
	NewRules     int
	SkippedCases int
}

// CaseDecision is what the user chose for one pending duplicate case.
type CaseDecision struct {
	Resolution    model.Resolution
	ApplyToFuture bool
	Skipped       bool
}

// Prompter implements interactive duplicate case resolution on a terminal.
type Prompter struct {
	startTime      time.Time
	writer         io.Writer
	reader         *NonBlockingReader
	progressBar    *progressbar.ProgressBar
	stats          ResolutionStats
	totalCases     int
	processedCount int
	statsMutex     sync.RWMutex
}

// NewCLIPrompter creates a new CLI prompter with the given reader and writer.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader:    NewNonBlockingReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// SetTotalCases sets the number of cases to be reviewed this session.
func (p *Prompter) SetTotalCases(total int) {
	p.totalCases = total
	p.initProgressBar()
}

// ResolveCase prompts the user to decide one pending duplicate case.
func (p *Prompter) ResolveCase(ctx context.Context, c model.PendingDuplicateCase) (CaseDecision, error) {
	select {
	case <-ctx.Done():
		return CaseDecision{}, ctx.Err()
	default:
	}

	p.updateProgress()

	content := p.formatCase(c)
	if _, err := fmt.Fprintln(p.writer, RenderBox("Duplicate Review", content)); err != nil {
		return CaseDecision{}, fmt.Errorf("failed to write case box: %w", err)
	}

	options := []string{
		fmt.Sprintf("  [F] Keep first (%s), drop second", c.FirstBank),
		fmt.Sprintf("  [S] Keep second (%s), drop first", c.SecondBank),
		"  [B] Keep both (not a duplicate)",
		"  [D] Delete both",
		"  [K] Skip for now",
	}
	for _, opt := range options {
		if _, err := fmt.Fprintln(p.writer, opt); err != nil {
			return CaseDecision{}, fmt.Errorf("failed to write option: %w", err)
		}
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return CaseDecision{}, fmt.Errorf("failed to write newline: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [F/S/B/D/K]", []string{"f", "s", "b", "d", "k"})
	if err != nil {
		return CaseDecision{}, err
	}

	if choice == "k" {
		p.incrementStats(func(s *ResolutionStats) { s.SkippedCases++ })
		if _, err := fmt.Fprintln(p.writer, FormatWarning("Skipped, case stays open")); err != nil {
			slog.Warn("Failed to write skip message", "error", err)
		}
		return CaseDecision{Skipped: true}, nil
	}

	resolution := map[string]model.Resolution{
		"f": model.ResolutionKeepFirst,
		"s": model.ResolutionKeepSecond,
		"b": model.ResolutionKeepBoth,
		"d": model.ResolutionDeleteBoth,
	}[choice]

	applyToFuture, err := p.promptApplyToFuture(ctx, c)
	if err != nil {
		return CaseDecision{}, err
	}

	p.incrementStats(func(s *ResolutionStats) {
		switch resolution {
		case model.ResolutionKeepFirst:
			s.KeptFirst++
		case model.ResolutionKeepSecond:
			s.KeptSecond++
		case model.ResolutionKeepBoth:
			s.KeptBoth++
		case model.ResolutionDeleteBoth:
			s.DeletedBoth++
		}
		if applyToFuture {
			s.NewRules++
		}
	})

	return CaseDecision{Resolution: resolution, ApplyToFuture: applyToFuture}, nil
}

// GetCompletionStats returns statistics about the resolution session.
func (p *Prompter) GetCompletionStats() ResolutionStats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

// ShowCompletion displays the completion summary to the user.
func (p *Prompter) ShowCompletion() {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline", "error", err)
		}
	}

	stats := p.GetCompletionStats()

	summary := fmt.Sprintf("%s Review complete!\n\n", CheckIcon) +
		fmt.Sprintf("  • Cases reviewed: %d\n", stats.TotalCases) +
		fmt.Sprintf("  • Kept first: %d\n", stats.KeptFirst) +
		fmt.Sprintf("  • Kept second: %d\n", stats.KeptSecond) +
		fmt.Sprintf("  • Kept both: %d\n", stats.KeptBoth) +
		fmt.Sprintf("  • Deleted both: %d\n", stats.DeletedBoth) +
		fmt.Sprintf("  • Skipped: %d\n", stats.SkippedCases) +
		fmt.Sprintf("  • New standing rules: %d\n", stats.NewRules) +
		fmt.Sprintf("  • Time taken: %s\n", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Duplicate Resolution", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (p *Prompter) initProgressBar() {
	p.progressBar = progressbar.NewOptions(p.totalCases,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reviewing duplicate cases...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (p *Prompter) updateProgress() {
	p.processedCount++
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *Prompter) formatCase(c model.PendingDuplicateCase) string {
	header := TitleStyle.Render(fmt.Sprintf("Same amount within the window: %s", FormatWon(c.Amount)))

	details := fmt.Sprintf("%s Details:\n", InfoIcon) +
		fmt.Sprintf("  First:  %s %s (txn %s)\n", BankIcon, c.FirstBank, c.FirstTxnID) +
		fmt.Sprintf("  Second: %s %s (txn %s)\n", CardIcon, c.SecondBank, c.SecondTxnID) +
		fmt.Sprintf("  Seen:   %s\n", c.CreatedAt.Format("Jan 2, 2006 15:04:05"))

	return header + "\n\n" + details
}

func (p *Prompter) promptApplyToFuture(ctx context.Context, c model.PendingDuplicateCase) (bool, error) {
	prompt := fmt.Sprintf("Always do this for %s + %s? [y/N]", c.FirstBank, c.SecondBank)
	choice, err := p.promptChoice(ctx, prompt, []string{"y", "n", ""})
	if err != nil {
		return false, err
	}
	return choice == "y", nil
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(input)

		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) incrementStats(apply func(*ResolutionStats)) {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()

	p.stats.TotalCases++
	apply(&p.stats)
}
