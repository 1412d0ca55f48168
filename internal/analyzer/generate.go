package analyzer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/augurhq/augur/internal/ai"
)

// GeneratedTest records one test file written by GenerateTests.
type GeneratedTest struct {
	Source string `json:"source"`
	Test   string `json:"test"`
}

// GenerateTests writes AI-generated test files for up to limit uncovered
// source files. Each test lands next to its source as
// test_<original filename>, so a subsequent Analyze counts it. Files are
// never overwritten. Requires an AI client.
func (a *Analyzer) GenerateTests(ctx context.Context, dir string, uncovered []string, limit int) ([]GeneratedTest, error) {
	if a.client == nil {
		return nil, fmt.Errorf("test generation requires a completion service")
	}
	if limit > len(uncovered) {
		limit = len(uncovered)
	}

	var generated []GeneratedTest
	for _, rel := range uncovered[:limit] {
		testRel := filepath.Join(filepath.Dir(rel), "test_"+filepath.Base(rel))
		testPath := filepath.Join(dir, testRel)
		if fileExists(testPath) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			log.Printf("analyzer: reading %s for test generation: %v", rel, err)
			continue
		}
		if len(content) > maxAIFileBytes {
			content = content[:maxAIFileBytes]
		}

		code, err := a.generateTestFor(ctx, rel, string(content))
		if err != nil {
			log.Printf("analyzer: generating test for %s: %v", rel, err)
			continue
		}

		if err := os.WriteFile(testPath, []byte(code), 0o644); err != nil {
			log.Printf("analyzer: writing %s: %v", testRel, err)
			continue
		}
		generated = append(generated, GeneratedTest{Source: rel, Test: testRel})
	}

	return generated, nil
}

func (a *Analyzer) generateTestFor(ctx context.Context, rel, content string) (string, error) {
	lang := languageOf(rel)
	resp, err := a.client.Complete(ctx, ai.Request{
		System: "You are a test author. Respond only with the complete contents of a test file, " +
			"with no commentary and no markdown fences.",
		User: fmt.Sprintf("Write %s unit tests for this file. Cover the main code paths and obvious edge cases.\n\nFile: %s\n\n```\n%s\n```", lang, rel, content),
	})
	if err != nil {
		return "", err
	}

	code := stripFences(resp)
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("empty test body")
	}
	return code + "\n", nil
}

func languageOf(rel string) string {
	switch filepath.Ext(rel) {
	case ".go":
		return "Go"
	case ".py":
		return "Python"
	case ".js", ".jsx":
		return "JavaScript"
	case ".ts", ".tsx":
		return "TypeScript"
	case ".java":
		return "Java"
	case ".rb":
		return "Ruby"
	case ".rs":
		return "Rust"
	default:
		return "unit"
	}
}
