// Package seed fills a development database with fake Warbler users, messages,
// follows and likes.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options controls how much data the seeder creates.
type Options struct {
	Users          int
	Messages       int
	FollowsPerUser int
	LikesPerUser   int
	Password       string
	BcryptCost     int
	// RandSeed makes runs reproducible. Zero picks a time-based seed.
	RandSeed int64
	// MaxDays spreads message timestamps over the last MaxDays days.
	MaxDays int
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seeder writes fake data through a *gorm.DB.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder fills in defaults for any zero option.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.RandSeed == 0 {
		opts.RandSeed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed)}
}

// ClearAll deletes every like, follow, message and user, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.InfoContext(ctx, "clearing existing data")
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates users first, then messages, follows and likes between them.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	users, err := s.createUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	msgs, err := s.createMessages(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("create messages: %w", err)
	}
	follows, err := s.createFollows(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}
	likes, err := s.createLikes(ctx, users, msgs)
	if err != nil {
		return nil, fmt.Errorf("create likes: %w", err)
	}

	summary := &Summary{Users: len(users), Messages: len(msgs), Follows: follows, Likes: likes}
	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", summary.Users),
		slog.Int("messages", summary.Messages),
		slog.Int("follows", summary.Follows),
		slog.Int("likes", summary.Likes),
	)
	return summary, nil
}

func (s *Seeder) createUsers(ctx context.Context) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, s.opts.Users)
	users := make([]models.User, 0, s.opts.Users)
	for len(users) < s.opts.Users {
		name := s.username(len(users))
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		users = append(users, models.User{
			Username: name,
			Email:    strings.ToLower(name) + "@" + s.faker.DomainName(),
			Password: string(hash),
			ImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
			Bio:      truncate(s.faker.Sentence(10), validation.MaxBioLength),
			Location: truncate(s.faker.City()+", "+s.faker.StateAbr(), validation.MaxLocationLength),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// username returns a faker username cut down to what signup accepts, with a
// numbered fallback when nothing usable is left.
func (s *Seeder) username(n int) string {
	var b strings.Builder
	for _, r := range s.faker.Username() {
		if r == '_' || r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), "_-")
	if len(name) > validation.MaxUsernameLength-4 {
		name = strings.Trim(name[:validation.MaxUsernameLength-4], "_-")
	}
	name = fmt.Sprintf("%s%d", name, s.faker.Number(100, 999))
	if validation.ValidateUsername(name) != nil {
		name = fmt.Sprintf("warbler%d", n+1)
	}
	return name
}

func (s *Seeder) createMessages(ctx context.Context, users []models.User) ([]models.Message, error) {
	if len(users) == 0 || s.opts.Messages <= 0 {
		return nil, nil
	}

	now := time.Now()
	maxMinutes := s.opts.MaxDays * 24 * 60
	msgs := make([]models.Message, 0, s.opts.Messages)
	for i := 0; i < s.opts.Messages; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		age := time.Duration(s.faker.Number(0, maxMinutes)) * time.Minute
		msgs = append(msgs, models.Message{
			Text:      truncate(s.faker.HackerPhrase(), validation.MaxMessageLength),
			UserID:    author.ID,
			Timestamp: now.Add(-age),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&msgs, 200).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Seeder) createFollows(ctx context.Context, users []models.User) (int, error) {
	if len(users) < 2 || s.opts.FollowsPerUser <= 0 {
		return 0, nil
	}

	var follows []models.Follow
	for _, follower := range users {
		picked := make(map[uint]bool)
		for tries := 0; len(picked) < s.opts.FollowsPerUser && tries < s.opts.FollowsPerUser*3; tries++ {
			target := users[s.faker.Number(0, len(users)-1)]
			if target.ID == follower.ID || picked[target.ID] {
				continue
			}
			picked[target.ID] = true
			follows = append(follows, models.Follow{UserFollowingID: follower.ID, UserBeingFollowedID: target.ID})
		}
	}
	if len(follows) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&follows, 500).Error; err != nil {
		return 0, err
	}
	return len(follows), nil
}

func (s *Seeder) createLikes(ctx context.Context, users []models.User, msgs []models.Message) (int, error) {
	if len(msgs) == 0 || s.opts.LikesPerUser <= 0 {
		return 0, nil
	}

	var likes []models.Like
	for _, user := range users {
		picked := make(map[uint]bool)
		for tries := 0; len(picked) < s.opts.LikesPerUser && tries < s.opts.LikesPerUser*3; tries++ {
			msg := msgs[s.faker.Number(0, len(msgs)-1)]
			if msg.UserID == user.ID || picked[msg.ID] {
				continue
			}
			picked[msg.ID] = true
			likes = append(likes, models.Like{UserID: user.ID, MessageID: msg.ID})
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&likes, 500).Error; err != nil {
		return 0, err
	}
	return len(likes), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
