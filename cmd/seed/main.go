package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"librarydesk/internal/entity"
	"librarydesk/internal/platform/libraryapi"
)

func main() {
	var (
		books   = flag.Int("books", 50, "Number of books to create")
		members = flag.Int("members", 20, "Number of members to create")
		loans   = flag.Int("loans", 15, "Number of loans to create")
		workers = flag.Int("workers", 4, "Concurrent requests")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	baseURL := os.Getenv("LIBRARY_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081/api"
	}
	client, err := libraryapi.NewClient(baseURL, libraryapi.WithTimeout(30*time.Second))
	if err != nil {
		log.Fatalf("Invalid LIBRARY_API_URL: %v", err)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Printf("Creating %d books and %d members on %s...", *books, *members, client.BaseURL())
	createdBooks, err := seedBooks(ctx, client, bookInputs(rng, *books), *workers)
	if err != nil {
		log.Fatalf("Failed to create books: %v", err)
	}
	createdMembers, err := seedMembers(ctx, client, memberInputs(*members), *workers)
	if err != nil {
		log.Fatalf("Failed to create members: %v", err)
	}

	// Loans go one at a time so available copies never race.
	made := 0
	for i := 0; i < *loans && len(createdBooks) > 0 && len(createdMembers) > 0; i++ {
		b := createdBooks[rng.Intn(len(createdBooks))]
		m := createdMembers[rng.Intn(len(createdMembers))]
		due := time.Now().AddDate(0, 0, 1+rng.Intn(21)).Format("2006-01-02")
		if _, err := client.CreateLoan(ctx, libraryapi.LoanInput{MemberID: m.ID, BookID: b.ID, DueAt: due}); err != nil {
			log.Printf("Skipping loan of %q: %s", b.Title, libraryapi.MessageOf(err, err.Error()))
			continue
		}
		made++
	}

	log.Printf("Successfully created %d books, %d members, %d loans!", len(createdBooks), len(createdMembers), made)
}

func seedBooks(ctx context.Context, c *libraryapi.Client, inputs []libraryapi.BookInput, workers int) ([]entity.Book, error) {
	out := make([]entity.Book, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, in := range inputs {
		g.Go(func() error {
			b, err := c.CreateBook(ctx, in)
			if err != nil {
				return fmt.Errorf("book %s: %w", in.ISBN, err)
			}
			out[i] = b
			return nil
		})
	}
	return out, g.Wait()
}

func seedMembers(ctx context.Context, c *libraryapi.Client, inputs []libraryapi.MemberInput, workers int) ([]entity.Member, error) {
	out := make([]entity.Member, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, in := range inputs {
		g.Go(func() error {
			m, err := c.CreateMember(ctx, in)
			if err != nil {
				return fmt.Errorf("member %s: %w", in.Email, err)
			}
			out[i] = m
			return nil
		})
	}
	return out, g.Wait()
}

func bookInputs(rng *rand.Rand, n int) []libraryapi.BookInput {
	out := make([]libraryapi.BookInput, n)
	stamp := time.Now().Unix() % 100000
	for i := range out {
		out[i] = libraryapi.BookInput{
			ISBN:   fmt.Sprintf("978-%05d%04d", stamp, i+1),
			Title:  fmt.Sprintf("The %s of %s", getRandomWord(rng), getRandomWord(rng)),
			Author: authors[rng.Intn(len(authors))],
			Copies: 1 + rng.Intn(5),
		}
	}
	return out
}

func memberInputs(n int) []libraryapi.MemberInput {
	out := make([]libraryapi.MemberInput, n)
	stamp := time.Now().Unix()
	for i := range out {
		first := firstNames[i%len(firstNames)]
		out[i] = libraryapi.MemberInput{
			Name:  fmt.Sprintf("%s %d", first, i+1),
			Email: fmt.Sprintf("%s.%d.%d@example.com", first, stamp, i+1),
		}
	}
	return out
}

var (
	authors    = []string{"Jane Austen", "Frank Herbert", "Ursula K. Le Guin", "Toni Morrison", "Italo Calvino", "Chinua Achebe", "Haruki Murakami", "Octavia Butler"}
	firstNames = []string{"ada", "grace", "alan", "edsger", "barbara", "donald", "margaret", "ken"}
)

func getRandomWord(rng *rand.Rand) string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
	return words[rng.Intn(len(words))]
}
