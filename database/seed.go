package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"gorm.io/gorm"
)

// Seed is the sample content the fallback store starts with.
type Seed struct {
	Users    []models.Profile
	Posts    []models.Post
	Comments []models.Comment
}

var (
	SeedAdminID  = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	SeedReaderID = uuid.MustParse("00000000-0000-4000-8000-000000000002")
	SeedTrollID  = uuid.MustParse("00000000-0000-4000-8000-000000000003")

	SeedPostAIID      = uuid.MustParse("00000000-0000-4000-8000-000000000101")
	SeedPostMarketsID = uuid.MustParse("00000000-0000-4000-8000-000000000102")
	SeedPostLivingID  = uuid.MustParse("00000000-0000-4000-8000-000000000103")
	SeedPostDraftID   = uuid.MustParse("00000000-0000-4000-8000-000000000104")

	SeedCommentApprovedID = uuid.MustParse("00000000-0000-4000-8000-0000000000c1")
	SeedCommentFlaggedID  = uuid.MustParse("00000000-0000-4000-8000-0000000000c2")
	SeedCommentPendingID  = uuid.MustParse("00000000-0000-4000-8000-0000000000c3")
)

func avatar(n int) *string {
	s := fmt.Sprintf("https://picsum.photos/id/%d/100/100", n)
	return &s
}

// DefaultSeed returns three accounts, three live posts, one draft and a
// comment in each moderation state, timestamped relative to now.
func DefaultSeed() Seed {
	now := time.Now().UTC()
	return Seed{
		Users: []models.Profile{
			{ID: SeedAdminID, Email: "admin@nexus.com", Name: "Admin User", Role: models.RoleAdmin, AvatarURL: avatar(64), CreatedAt: now.Add(-72 * time.Hour), UpdatedAt: now.Add(-72 * time.Hour)},
			{ID: SeedReaderID, Email: "reader@nexus.com", Name: "Jane Reader", Role: models.RoleUser, AvatarURL: avatar(65), CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour)},
			{ID: SeedTrollID, Email: "troll@nexus.com", Name: "Troll User", Role: models.RoleUser, IsSuspended: true, AvatarURL: avatar(66), CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now.Add(-24 * time.Hour)},
		},
		Posts: []models.Post{
			{
				ID:           SeedPostAIID,
				Title:        "The Future of AI in Journalism",
				Excerpt:      "How artificial intelligence is reshaping the way we consume and create news content in 2024.",
				Content:      "Artificial intelligence is no longer just a buzzword; it is a fundamental shift in how news is gathered, processed, and delivered. From automated summary generation to real-time fact-checking, AI tools are empowering journalists to cover more ground. However, this technological leap brings ethical questions regarding bias and the potential for deepfakes...",
				Category:     "Technology",
				ImageURL:     "https://picsum.photos/id/1/800/400",
				Author:       "Sarah Tech",
				PublishedAt:  now.Add(-24 * time.Hour),
				IsPublished:  true,
				SocialPosted: models.SocialPosted{Facebook: true},
				Views:        1205,
			},
			{
				ID:           SeedPostMarketsID,
				Title:        "Global Markets Rally Amid Tech Boom",
				Excerpt:      "Stock markets across Asia and Europe see significant gains as tech sector reports record profits.",
				Content:      "The global economy showed strong signs of resilience this week as major indices hit new highs. The rally was primarily driven by the semiconductor industry, which continues to see unprecedented demand. Analysts suggest that this trend is likely to continue through Q4...",
				Category:     "Business",
				ImageURL:     "https://picsum.photos/id/20/800/400",
				Author:       "John Dow",
				PublishedAt:  now.Add(-48 * time.Hour),
				IsPublished:  true,
				SocialPosted: models.SocialPosted{Facebook: true, Twitter: true},
				Views:        850,
			},
			{
				ID:          SeedPostLivingID,
				Title:       "Sustainable Living: Top Tips for 2024",
				Excerpt:     "Simple changes you can make in your daily routine to reduce your carbon footprint.",
				Content:     "Sustainability starts at home. By reducing plastic waste, composting organic matter, and choosing energy-efficient appliances, individuals can make a measurable impact. In this guide, we explore ten actionable steps...",
				Category:    "Lifestyle",
				ImageURL:    "https://picsum.photos/id/28/800/400",
				Author:      "Eco Warrior",
				PublishedAt: now.Add(-time.Hour),
				IsPublished: true,
				Views:       340,
			},
			{
				ID:          SeedPostDraftID,
				Title:       "Draft Article: The Mars Mission",
				Excerpt:     "An exclusive look into the preparation for the next manned mission to Mars.",
				Content:     "This is a draft content that is not yet visible to the public...",
				Category:    "Science",
				ImageURL:    "https://picsum.photos/id/45/800/400",
				Author:      "Admin User",
				PublishedAt: now,
			},
		},
		Comments: []models.Comment{
			{ID: SeedCommentApprovedID, PostID: SeedPostAIID, UserID: SeedReaderID, UserName: "Jane Reader", Content: "This is a fascinating read. I worry about job displacement though.", Status: models.CommentApproved, CreatedAt: now.Add(-time.Hour)},
			{ID: SeedCommentFlaggedID, PostID: SeedPostAIID, UserID: SeedTrollID, UserName: "Troll User", Content: "AI is a scam! Fake news!", Status: models.CommentFlagged, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: SeedCommentPendingID, PostID: SeedPostMarketsID, UserID: SeedReaderID, UserName: "Jane Reader", Content: "Great market analysis.", Status: models.CommentPending, CreatedAt: now.Add(-30 * time.Minute)},
		},
	}
}

// SeedGorm writes seed into db as stored, bypassing the create-time
// defaults the stores apply. Rows that already exist are an error.
func SeedGorm(ctx context.Context, db *gorm.DB, seed Seed) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range seed.Users {
			if err := tx.Create(&seed.Users[i]).Error; err != nil {
				return err
			}
		}
		for i := range seed.Posts {
			if err := tx.Create(&seed.Posts[i]).Error; err != nil {
				return err
			}
		}
		for i := range seed.Comments {
			if err := tx.Create(&seed.Comments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.NewDatabaseError("seed", "sample data", err)
	}
	return nil
}
