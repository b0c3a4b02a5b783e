// Package commitmsg builds the chat messages that ask a model for a
// conventional commit message, and extracts the answer.
package commitmsg

import (
	"context"
	"errors"
	"strings"

	"aicommit/cli/internal/groq"
)

// NoSubject is passed as the subject when the user gave none; the model
// reads it as "choose the subject yourself".
const NoSubject = "--"

const subjectPlaceholder = "{{SUBJECT}}"

// GeneratePrompt instructs the model to write one commit message for a diff.
// {{SUBJECT}} is replaced verbatim with the user's subject or NoSubject.
const GeneratePrompt = `You are an expert at writing git commit messages. You receive a unified diff.

Input format:
- The input is the output of git diff.
- Lines starting with + were added.
- Lines starting with - were removed.

Rules:
- Output ONLY the commit message, no other text or explanation.
- Write a single commit message for the entire diff.
- Use the subject given by the user if one is provided; a subject of "--" means none was given, so write your own.

Format (Conventional Commits):

<type>[optional scope]: <description>

[optional body]

[optional footer(s)]

Types: fix patches a bug (PATCH). feat introduces a feature (MINOR). A footer "BREAKING CHANGE: <description>" or a ! after the type/scope marks a breaking API change (MAJOR). Other types such as build, chore, ci, docs, style, refactor, perf and test are allowed. A scope in parentheses adds context, e.g. feat(parser): add ability to parse arrays.

Skip the body and footer when they would only restate what the diff makes obvious. Avoid phrases such as "introduces X class for doing Y". Do not use backticks or markdown.

Context:
- Subject: {{SUBJECT}}`

// ImprovePrompt instructs the model to revise a drafted commit message.
const ImprovePrompt = `You are an expert at writing git commit messages. You receive a unified diff, then a commit message drafted for it.

Rewrite the drafted message so that it:
- follows Conventional Commits: <type>[optional scope]: <description>, then an optional body and footer(s);
- describes what the diff actually changes, correcting anything the draft gets wrong;
- keeps the author's intent, scope and any issue references or footers;
- has a description in imperative mood, 72 characters or less.

Output ONLY the improved commit message, no other text or explanation. Do not use backticks or markdown.`

// Generate returns the messages asking for a fresh commit message:
// a system prompt carrying subject, then the diff as the user message.
// subject is rendered verbatim, including NoSubject.
func Generate(subject, diff string) []groq.Message {
	return []groq.Message{
		groq.System(strings.ReplaceAll(GeneratePrompt, subjectPlaceholder, subject)),
		groq.User(diff),
	}
}

// Improve returns the messages asking to revise prior against diff:
// system prompt, the diff, then the prior message.
func Improve(diff, prior string) []groq.Message {
	return []groq.Message{
		groq.System(ImprovePrompt),
		groq.User(diff),
		groq.User(prior),
	}
}

// Compose picks Improve when prior is non-empty, otherwise Generate.
func Compose(subject, diff, prior string) []groq.Message {
	if prior != "" {
		return Improve(diff, prior)
	}
	return Generate(subject, diff)
}

// Completer is the chat-completion call Suggest needs; *groq.Client implements it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, model string, messages []groq.Message) (*groq.ChatResponse, error)
}

// Suggest sends messages to model and returns the first choice's content, trimmed.
func Suggest(ctx context.Context, client Completer, model string, messages []groq.Message) (string, error) {
	if client == nil {
		return "", errors.New("commitmsg: nil client")
	}
	resp, err := client.CreateChatCompletion(ctx, model, messages)
	if err != nil {
		return "", err
	}
	content, err := resp.Content()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}
