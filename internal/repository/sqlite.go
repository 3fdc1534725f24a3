// Package repository provides the sqlite-backed stores consumed by the
// advisory engine: farms (with crops), curated markets, guidance templates
// and per-farm guideline links.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
	"github.com/mbodji-lab/farm-advisory/pkg/geo"
)

// Store wraps the sqlite database holding farms, markets and templates.
type Store struct {
	db     *sql.DB
	DBPath string
}

// NewStore opens (creating if needed) the sqlite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "advisory.db")
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	s := &Store{db: db, DBPath: dbPath}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS farms (
		id TEXT PRIMARY KEY,
		name TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		region TEXT,
		soil_type TEXT,
		farming_type TEXT
	);
	CREATE TABLE IF NOT EXISTS farm_crops (
		farm_id TEXT NOT NULL,
		crop_id TEXT NOT NULL,
		crop_name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (farm_id, crop_id)
	);
	CREATE TABLE IF NOT EXISTS markets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT,
		market_days TEXT,
		accepted_crops TEXT,
		market_type TEXT,
		contact_phone TEXT,
		contact_email TEXT,
		website TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_markets_lat ON markets(lat);
	CREATE INDEX IF NOT EXISTS idx_markets_lng ON markets(lng);
	CREATE TABLE IF NOT EXISTS guidance_templates (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		type TEXT,
		content TEXT,
		soil_type TEXT,
		farming_type TEXT,
		region TEXT,
		climate_zone TEXT,
		conditions TEXT,
		priority TEXT,
		recommendations TEXT
	);
	CREATE TABLE IF NOT EXISTS farm_guidelines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farm_id TEXT NOT NULL,
		template_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE(farm_id, template_id)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetFarmByID loads a farm and its crops in registration order.
// Returns (nil, nil) when the farm does not exist.
func (s *Store) GetFarmByID(ctx context.Context, id string) (*entities.Farm, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(name,''), lat, lng, COALESCE(region,''), COALESCE(soil_type,''), COALESCE(farming_type,'')
		 FROM farms WHERE id = ?`, id)

	var f entities.Farm
	err := row.Scan(&f.ID, &f.Name, &f.Location.Lat, &f.Location.Lng, &f.Region, &f.SoilType, &f.FarmingType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query farm %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT crop_id, crop_name FROM farm_crops WHERE farm_id = ? ORDER BY position, crop_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query farm crops: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c entities.CropRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		f.Crops = append(f.Crops, c)
	}
	return &f, rows.Err()
}

// FindMarketsInBox returns active curated markets whose coordinates fall
// inside the bounding box.
func (s *Store) FindMarketsInBox(ctx context.Context, box geo.BoundingBox) ([]entities.Market, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description,''), lat, lng, COALESCE(address,''),
		        COALESCE(market_days,'[]'), COALESCE(accepted_crops,'[]'), COALESCE(market_type,''),
		        COALESCE(contact_phone,''), COALESCE(contact_email,''), COALESCE(website,''), verified
		 FROM markets
		 WHERE is_active = 1 AND lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	var out []entities.Market
	for rows.Next() {
		var m entities.Market
		var days, crops string
		var verified int
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Location.Lat, &m.Location.Lng,
			&m.Address, &days, &crops, &m.MarketType,
			&m.ContactPhone, &m.ContactEmail, &m.Website, &verified); err != nil {
			return nil, err
		}
		m.Source = entities.MarketSourceInternal
		m.Verified = verified != 0
		if err := json.Unmarshal([]byte(days), &m.MarketDays); err != nil {
			m.MarketDays = nil
		}
		if err := json.Unmarshal([]byte(crops), &m.AcceptedCrops); err != nil {
			m.AcceptedCrops = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const templateColumns = `id, title, COALESCE(type,''), COALESCE(content,''),
	soil_type, farming_type, region, climate_zone, conditions, COALESCE(priority,''), recommendations`

// FindTemplatesMatching runs the strict candidate query: any matching field
// equal to the criterion, or a fully generic template.
func (s *Store) FindTemplatesMatching(ctx context.Context, c entities.TemplateCriteria) ([]entities.GuidanceTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM guidance_templates WHERE
			(soil_type IS NOT NULL AND soil_type = ?) OR
			(farming_type IS NOT NULL AND farming_type = ?) OR
			(region IS NOT NULL AND region = ?) OR
			(climate_zone IS NOT NULL AND climate_zone = ?) OR
			(soil_type IS NULL AND farming_type IS NULL AND region IS NULL AND climate_zone IS NULL)
		 ORDER BY id`,
		c.SoilType, c.FarmingType, c.Region, c.ClimateZone)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// FindRelaxedTemplates is the relaxed fallback: templates leaving any one of
// region, farming type or soil type unconstrained.
func (s *Store) FindRelaxedTemplates(ctx context.Context, limit int) ([]entities.GuidanceTemplate, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM guidance_templates
		 WHERE region IS NULL OR farming_type IS NULL OR soil_type IS NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query relaxed templates: %w", err)
	}
	defer rows.Close()
	return scanTemplates(rows)
}

func scanTemplates(rows *sql.Rows) ([]entities.GuidanceTemplate, error) {
	var out []entities.GuidanceTemplate
	for rows.Next() {
		var t entities.GuidanceTemplate
		var soil, farming, region, zone, conditions, recs sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Type, &t.Content,
			&soil, &farming, &region, &zone, &conditions, &t.Priority, &recs); err != nil {
			return nil, err
		}
		t.SoilType = nullable(soil)
		t.FarmingType = nullable(farming)
		t.Region = nullable(region)
		t.ClimateZone = nullable(zone)
		if conditions.Valid && conditions.String != "" {
			var c entities.TemplateConditions
			if err := json.Unmarshal([]byte(conditions.String), &c); err == nil {
				t.Conditions = &c
			}
		}
		if recs.Valid && recs.String != "" {
			_ = json.Unmarshal([]byte(recs.String), &t.Recommendations)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// ActiveGuidelines returns the farm's stored active guidelines joined with
// their templates, in the shape the synthesizer consumes.
func (s *Store) ActiveGuidelines(ctx context.Context, farmID string) ([]entities.Guideline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fg.id, t.title, COALESCE(t.type,''), COALESCE(t.content,''), t.recommendations, COALESCE(t.priority,'')
		 FROM farm_guidelines fg
		 JOIN guidance_templates t ON t.id = fg.template_id
		 WHERE fg.farm_id = ? AND fg.status = 'active'
		 ORDER BY fg.id`, farmID)
	if err != nil {
		return nil, fmt.Errorf("query farm guidelines: %w", err)
	}
	defer rows.Close()

	var out []entities.Guideline
	for rows.Next() {
		var g entities.Guideline
		var id int64
		var recs sql.NullString
		if err := rows.Scan(&id, &g.Title, &g.Type, &g.Content, &recs, &g.Priority); err != nil {
			return nil, err
		}
		g.ID = fmt.Sprintf("%d", id)
		if recs.Valid && recs.String != "" {
			_ = json.Unmarshal([]byte(recs.String), &g.Recommendations)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpsertFarmGuideline links a template to a farm with active status.
// Re-linking an existing pair is a no-op.
func (s *Store) UpsertFarmGuideline(ctx context.Context, farmID, templateID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO farm_guidelines (farm_id, template_id, status) VALUES (?, ?, 'active')`,
		farmID, templateID)
	if err != nil {
		return fmt.Errorf("upsert farm guideline: %w", err)
	}
	return nil
}

// SaveFarm inserts or replaces a farm and its crops (admin/seed path).
func (s *Store) SaveFarm(ctx context.Context, f *entities.Farm) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO farms (id, name, lat, lng, region, soil_type, farming_type) VALUES (?,?,?,?,?,?,?)`,
		f.ID, f.Name, f.Location.Lat, f.Location.Lng, f.Region, f.SoilType, f.FarmingType); err != nil {
		return fmt.Errorf("save farm: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM farm_crops WHERE farm_id = ?`, f.ID); err != nil {
		return err
	}
	for i, c := range f.Crops {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO farm_crops (farm_id, crop_id, crop_name, position) VALUES (?,?,?,?)`,
			f.ID, c.ID, c.Name, i); err != nil {
			return fmt.Errorf("save farm crop: %w", err)
		}
	}
	return tx.Commit()
}

// SaveMarket inserts or replaces a curated market (admin/seed path).
func (s *Store) SaveMarket(ctx context.Context, m *entities.Market) error {
	days, _ := json.Marshal(m.MarketDays)
	crops, _ := json.Marshal(m.AcceptedCrops)
	verified := 0
	if m.Verified {
		verified = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO markets
		 (id, name, description, lat, lng, address, market_days, accepted_crops, market_type,
		  contact_phone, contact_email, website, verified, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,1)`,
		m.ID, m.Name, m.Description, m.Location.Lat, m.Location.Lng, m.Address,
		string(days), string(crops), m.MarketType, m.ContactPhone, m.ContactEmail, m.Website, verified)
	if err != nil {
		return fmt.Errorf("save market: %w", err)
	}
	return nil
}

// SaveTemplate inserts or replaces a guidance template (admin/seed path).
func (s *Store) SaveTemplate(ctx context.Context, t *entities.GuidanceTemplate) error {
	var conditions, recs interface{}
	if t.Conditions != nil {
		b, err := json.Marshal(t.Conditions)
		if err != nil {
			return fmt.Errorf("marshal conditions: %w", err)
		}
		conditions = string(b)
	}
	if t.Recommendations != nil {
		b, _ := json.Marshal(t.Recommendations)
		recs = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO guidance_templates
		 (id, title, type, content, soil_type, farming_type, region, climate_zone, conditions, priority, recommendations)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Type, t.Content,
		ptrToAny(t.SoilType), ptrToAny(t.FarmingType), ptrToAny(t.Region), ptrToAny(t.ClimateZone),
		conditions, t.Priority, recs)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func ptrToAny(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
