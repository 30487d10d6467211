package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Debug harness: runs queries against canned in-memory data so pattern
// matching and chain execution can be inspected without a live account.
func main() {
	client := seedClient()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	eng := engine.New(client, logger)

	queries := []string{
		"Show John's incomplete todos due next week",
		"Who is Sarah Chen?",
		"What did Mike complete this week?",
		"Who's working on what in Website Redesign?",
		"Find discussions about the launch checklist",
		"Show archived todos",
	}
	if len(os.Args) > 1 {
		queries = []string{strings.Join(os.Args[1:], " ")}
	}

	header := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgYellow)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	for _, query := range queries {
		header.Printf("\n=== QUERY: %q ===\n", query)

		start := time.Now()
		result, err := eng.AnalyzeAndExecute(context.Background(), query, &engine.Scope{ProjectName: "Website Redesign"})
		if err != nil {
			bad.Printf("error: %v\n", err)
			continue
		}

		label.Print("pattern:  ")
		fmt.Println(result.Pattern)
		label.Print("chain:    ")
		fmt.Println(strings.Join(result.Chain, " -> "))
		label.Print("metrics:  ")
		fmt.Printf("%d calls, %.0f%% cache hits, %s\n",
			result.Metrics.CallsMade,
			result.Metrics.CacheHitRate*100,
			time.Since(start).Round(time.Millisecond),
		)

		good.Printf("results (%d):\n", len(result.Results))
		prettyPrint(result.Results)
		if result.Summary != nil {
			label.Println("summary:")
			prettyPrint(result.Summary)
		}
	}
}

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func seedClient() *basecamp.MemoryClient {
	client := basecamp.NewMemoryClient()

	client.People = []basecamp.Person{
		{ID: 101, Name: "John Smith", EmailAddress: "john@example.com", Title: "Designer"},
		{ID: 102, Name: "Sarah Chen", EmailAddress: "sarah@example.com", Title: "Engineer"},
		{ID: 103, Name: "Mike Torres", EmailAddress: "mike@example.com", Title: "PM"},
	}
	client.Projects = []basecamp.Project{
		{ID: 201, Name: "Website Redesign", Status: "active"},
		{ID: 202, Name: "Mobile App", Status: "active"},
	}

	in := func(days int) string { return time.Now().AddDate(0, 0, days).Format("2006-01-02") }

	client.Groups[201] = []basecamp.TodoGroup{
		{ID: 301, Name: "Design", ProjectID: 201, Todos: []basecamp.Todo{
			{ID: 401, Title: "Draft homepage hero", ProjectID: 201, AssigneeIDs: []int64{101}, DueOn: in(5)},
			{ID: 402, Title: "Review launch checklist", ProjectID: 201, AssigneeIDs: []int64{101, 103}, DueOn: in(2)},
			{ID: 403, Title: "Ship style guide", ProjectID: 201, AssigneeIDs: []int64{102}, Completed: true, DueOn: in(-1)},
		}},
		{ID: 302, Name: "Backlog", ProjectID: 201, Todos: []basecamp.Todo{
			{ID: 404, Title: "Audit old blog posts", ProjectID: 201, Status: "archived"},
			{ID: 405, Title: "Collect launch feedback", ProjectID: 201, CreatorID: 103, DueOn: in(12)},
		}},
	}
	client.Groups[202] = []basecamp.TodoGroup{
		{ID: 303, Name: "Sprint 4", ProjectID: 202, Todos: []basecamp.Todo{
			{ID: 406, Title: "Fix push notifications", ProjectID: 202, AssigneeIDs: []int64{102}, DueOn: in(3)},
		}},
	}

	return client
}
