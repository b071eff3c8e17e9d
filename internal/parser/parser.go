package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	skippingContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads Q:/A: blocks from r. A card needs both a question and an
// answer; C: blocks are notes for the author and are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var current domain.Card
	var block []string
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(block, "\n"), "\n")
		switch st {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if strings.TrimSpace(current.Question) != "" && strings.TrimSpace(current.Answer) != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		st = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == separator:
			finishCard()
		case strings.HasPrefix(line, questionPrefix):
			if st != seeking { // A new question always starts a new card
				finishCard()
			}
			st = readingQuestion
			block = append(block, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			st = readingAnswer
			block = append(block, stripPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			st = skippingContext
		case st == readingQuestion || st == readingAnswer:
			block = append(block, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func stripPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
