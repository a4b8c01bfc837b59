package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/smsguard/internal/model"
)

// Analyzer produces a verdict for one message
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
}

// MessageJob analyzes one message of a batch
type MessageJob struct {
	Index    int
	Message  string
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *MessageJob) Execute(ctx context.Context) Result {
	result, err := j.Analyzer.Analyze(ctx, j.Message)
	return &MessageResult{
		Index:   j.Index,
		Message: j.Message,
		Result:  result,
		Error:   err,
	}
}

// MessageResult is the outcome for one message of a batch
type MessageResult struct {
	Index   int                   `json:"index"`
	Message string                `json:"message"`
	Result  *model.AnalysisResult `json:"result,omitempty"`
	Error   error                 `json:"-"`
}

func (r *MessageResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many messages concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessMessages analyzes every message and returns results in input order
func (b *BatchProcessor) ProcessMessages(ctx context.Context, messages []string) []*MessageResult {
	if len(messages) == 0 {
		return []*MessageResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := 0
	for i, msg := range messages {
		if !pool.Submit(&MessageJob{Index: i, Message: msg, Analyzer: b.analyzer}) {
			break
		}
		submitted++
	}

	results := pool.Wait()

	out := make([]*MessageResult, 0, len(messages))
	done := make(map[int]bool, len(results))
	for _, r := range results {
		mr := r.(*MessageResult)
		done[mr.Index] = true
		out = append(out, mr)
	}

	// Messages never submitted or dropped on cancellation still get an entry
	for i, msg := range messages {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("message %d was not processed", i)
			}
			out = append(out, &MessageResult{Index: i, Message: msg, Error: err})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads messages from a file ("-" for stdin) and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*MessageResult, error) {
	messages, err := ReadMessagesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return b.ProcessMessages(ctx, messages), nil
}

// ReadMessagesFromFile reads one message per line; "-" reads stdin
func ReadMessagesFromFile(filePath string) ([]string, error) {
	if filePath == "-" {
		return ReadMessages(os.Stdin)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadMessages(file)
}

// ReadMessages reads one message per line, skipping blank lines and # comments.
// Repeated messages are kept: each line is reported.
func ReadMessages(r io.Reader) ([]string, error) {
	var messages []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		messages = append(messages, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}

	return messages, nil
}
