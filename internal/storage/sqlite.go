package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"autoblog/internal/model"
	"autoblog/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const campaignColumns = `id, name, feed_url, max_items, check_latest_only,
	extraction_method, css_selector,
	remove_by_class, remove_by_id, strip_links, add_nofollow, strip_images,
	min_words, max_words, required_keywords, banned_keywords,
	rewrite_enabled, prompt_template, provider,
	download_images, set_featured_image,
	author_id, category_id, post_status,
	schedule_interval, is_active, last_run_at, created_at`

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
// All access goes through a single connection, which serializes writers
// and keeps ":memory:" databases coherent.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateCampaign inserts a new campaign and populates its ID and CreatedAt.
func (s *SQLite) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (name, feed_url, max_items, check_latest_only,
			extraction_method, css_selector,
			remove_by_class, remove_by_id, strip_links, add_nofollow, strip_images,
			min_words, max_words, required_keywords, banned_keywords,
			rewrite_enabled, prompt_template, provider,
			download_images, set_featured_image,
			author_id, category_id, post_status,
			schedule_interval, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(campaignArgs(c), now)...,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// UpsertCampaign creates the campaign, or updates the configuration of the
// existing campaign with the same name. Run state (last run, imported keys)
// is left untouched.
func (s *SQLite) UpsertCampaign(ctx context.Context, c *model.Campaign) error {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM campaigns WHERE name = ?`, c.Name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.CreateCampaign(ctx, c)
	}
	if err != nil {
		return fmt.Errorf("lookup campaign: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE campaigns SET name = ?, feed_url = ?, max_items = ?, check_latest_only = ?,
			extraction_method = ?, css_selector = ?,
			remove_by_class = ?, remove_by_id = ?, strip_links = ?, add_nofollow = ?, strip_images = ?,
			min_words = ?, max_words = ?, required_keywords = ?, banned_keywords = ?,
			rewrite_enabled = ?, prompt_template = ?, provider = ?,
			download_images = ?, set_featured_image = ?,
			author_id = ?, category_id = ?, post_status = ?,
			schedule_interval = ?, is_active = ?
		 WHERE id = ?`,
		append(campaignArgs(c), id)...,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	c.ID = id
	return nil
}

// GetCampaign returns a single campaign by its ID.
func (s *SQLite) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id,
	)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCampaigns returns all campaigns ordered by ID.
func (s *SQLite) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanCampaigns(rows)
}

// ListActiveCampaigns returns all campaigns with automation enabled.
func (s *SQLite) ListActiveCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE is_active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanCampaigns(rows)
}

// UpdateLastRun records when a campaign tick completed.
func (s *SQLite) UpdateLastRun(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET last_run_at = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	return nil
}

// ImportedKeys returns the set of item keys already imported for a campaign.
func (s *SQLite) ImportedKeys(ctx context.Context, campaignID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM imported_keys WHERE campaign_id = ?`, campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("query imported keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan imported key: %w", err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// CommitKey appends a key to the campaign's imported set. Committing a key
// that is already present is a no-op.
func (s *SQLite) CommitKey(ctx context.Context, campaignID int64, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO imported_keys (campaign_id, key) VALUES (?, ?)`,
		campaignID, key,
	)
	if err != nil {
		return fmt.Errorf("commit key: %w", err)
	}
	return nil
}

// SavePost persists a published post and returns its ID.
func (s *SQLite) SavePost(ctx context.Context, p *model.Post) (int64, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (campaign_id, title, body, status, author_id, category_id,
			featured_asset, source_url, source_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CampaignID, p.Title, p.Body, string(p.Status), p.AuthorID, p.CategoryID,
		p.FeaturedAsset, p.SourceURL, p.SourceKey, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListPosts returns the posts published for a campaign, oldest first.
func (s *SQLite) ListPosts(ctx context.Context, campaignID int64) ([]model.StoredPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, title, body, status, author_id, category_id,
			featured_asset, source_url, source_key, created_at
		 FROM posts WHERE campaign_id = ? ORDER BY id`, campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.StoredPost
	for rows.Next() {
		var p model.StoredPost
		var status, created string
		err := rows.Scan(&p.ID, &p.CampaignID, &p.Title, &p.Body, &status, &p.AuthorID, &p.CategoryID,
			&p.FeaturedAsset, &p.SourceURL, &p.SourceKey, &created)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Status = model.PostStatus(status)
		p.CreatedAt, _ = time.Parse(timeLayout, created)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreateAsset registers a stored image file and returns its ID.
func (s *SQLite) CreateAsset(ctx context.Context, sourceURL, path string) (int64, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (source_url, path, created_at) VALUES (?, ?, ?)`,
		sourceURL, path, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListRecentAssets returns the most recently created assets, newest first.
func (s *SQLite) ListRecentAssets(ctx context.Context, limit int) ([]model.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, created_at FROM assets ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []model.Asset
	for rows.Next() {
		var (
			id      int64
			a       model.Asset
			created string
		)
		if err := rows.Scan(&id, &a.URL, &created); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		a.CreatedAt, _ = time.Parse(timeLayout, created)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func campaignArgs(c *model.Campaign) []any {
	return []any{
		c.Name, c.FeedURL, c.MaxItems, boolToInt(c.CheckLatestOnly),
		string(c.Extraction.Method), c.Extraction.Selector,
		model.JoinCSV(c.Filter.RemoveByClass), model.JoinCSV(c.Filter.RemoveByID),
		boolToInt(c.Filter.StripLinks), boolToInt(c.Filter.AddNofollow), boolToInt(c.Filter.StripImages),
		c.Filter.MinWords, c.Filter.MaxWords,
		model.JoinCSV(c.Filter.RequiredKeywords), model.JoinCSV(c.Filter.BannedKeywords),
		boolToInt(c.Rewrite.Enabled), c.Rewrite.PromptTemplate, string(c.Rewrite.Provider),
		boolToInt(c.Image.Download), boolToInt(c.Image.SetFeatured),
		c.Publish.AuthorID, c.Publish.CategoryID, string(c.Publish.Status),
		string(c.Interval), boolToInt(c.IsActive),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var (
		c                                            model.Campaign
		checkLatest, stripLinks, nofollow, stripImgs int
		rewriteOn, download, featured, active        int
		method, provider, status, interval           string
		byClass, byID, required, banned              string
		lastRun, created                             sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.FeedURL, &c.MaxItems, &checkLatest,
		&method, &c.Extraction.Selector,
		&byClass, &byID, &stripLinks, &nofollow, &stripImgs,
		&c.Filter.MinWords, &c.Filter.MaxWords, &required, &banned,
		&rewriteOn, &c.Rewrite.PromptTemplate, &provider,
		&download, &featured,
		&c.Publish.AuthorID, &c.Publish.CategoryID, &status,
		&interval, &active, &lastRun, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	c.CheckLatestOnly = checkLatest == 1
	c.Extraction.Method = model.ExtractionMethod(method)
	c.Filter.RemoveByClass = model.SplitCSV(byClass)
	c.Filter.RemoveByID = model.SplitCSV(byID)
	c.Filter.StripLinks = stripLinks == 1
	c.Filter.AddNofollow = nofollow == 1
	c.Filter.StripImages = stripImgs == 1
	c.Filter.RequiredKeywords = model.SplitCSV(required)
	c.Filter.BannedKeywords = model.SplitCSV(banned)
	c.Rewrite.Enabled = rewriteOn == 1
	c.Rewrite.Provider = model.ProviderKind(provider)
	c.Image.Download = download == 1
	c.Image.SetFeatured = featured == 1
	c.Publish.Status = model.PostStatus(status)
	c.Interval = model.ScheduleInterval(interval)
	c.IsActive = active == 1
	if lastRun.Valid {
		t, _ := time.Parse(timeLayout, lastRun.String)
		c.LastRunAt = &t
	}
	if created.Valid {
		c.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &c, nil
}

func scanCampaigns(rows *sql.Rows) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}
