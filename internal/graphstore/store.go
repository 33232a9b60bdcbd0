// File path: internal/graphstore/store.go

// Package graphstore persists the knowledge graph (entities and
// relations) in SQLite through sqlx. Only the access patterns live here;
// similarity scoring is delegated to simmath and dedup policy to the
// entity resolver.
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nicodishanthj/corpusfuse/internal/simmath"
)

// ErrEntityNotFound is returned when a lookup by id or surface matches no
// row.
var ErrEntityNotFound = errors.New("entity not found")

// Store wraps a pooled sqlx.DB connection to the SQLite graph database.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided
// path. The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("graph db path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve graph db path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping graph db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sqlx.DB for advanced callers.
func (s *Store) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("graph store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`PRAGMA journal_mode = WAL;`,
	`CREATE TABLE IF NOT EXISTS entities (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                name TEXT NOT NULL,
                entity_type TEXT NOT NULL,
                embedding TEXT,
                source_doc TEXT,
                created_at INTEGER NOT NULL,
                UNIQUE(name, entity_type)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);`,
	`CREATE TABLE IF NOT EXISTS relations (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                source_id INTEGER NOT NULL REFERENCES entities(id),
                target_id INTEGER NOT NULL REFERENCES entities(id),
                relation_type TEXT NOT NULL,
                source_doc TEXT,
                created_at INTEGER NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id);`,
	`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id);`,
}

type entityRow struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Type      string         `db:"entity_type"`
	Embedding sql.NullString `db:"embedding"`
	SourceDoc sql.NullString `db:"source_doc"`
	CreatedAt int64          `db:"created_at"`
}

func (r entityRow) toEntity() Entity {
	return Entity{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Embedding: DecodeEmbedding(r.Embedding.String),
		SourceDoc: r.SourceDoc.String,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}

type relationRow struct {
	ID         int64          `db:"id"`
	SourceID   int64          `db:"source_id"`
	TargetID   int64          `db:"target_id"`
	Type       string         `db:"relation_type"`
	SourceDoc  sql.NullString `db:"source_doc"`
	CreatedAt  int64          `db:"created_at"`
	SourceName string         `db:"source_name"`
	TargetName string         `db:"target_name"`
}

func (r relationRow) toRelation() Relation {
	return Relation{
		ID:         r.ID,
		SourceID:   r.SourceID,
		TargetID:   r.TargetID,
		Type:       r.Type,
		SourceDoc:  r.SourceDoc.String,
		CreatedAt:  time.Unix(r.CreatedAt, 0).UTC(),
		SourceName: r.SourceName,
		TargetName: r.TargetName,
	}
}

// InsertEntity inserts a new entity and returns its id. When another
// writer raced the same exact surface+type pair, the existing row is
// looked up and returned instead of failing.
func (s *Store) InsertEntity(ctx context.Context, name, entityType string, embedding []float32, sourceDoc string) (int64, error) {
	name = strings.TrimSpace(name)
	entityType = strings.TrimSpace(entityType)
	if name == "" || entityType == "" {
		return InvalidID, errors.New("entity name and type required")
	}
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return InvalidID, fmt.Errorf("encode embedding: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (name, entity_type, embedding, source_doc, created_at)
                 VALUES (?, ?, ?, ?, ?)
                 ON CONFLICT(name, entity_type) DO NOTHING`,
		name, entityType, string(encoded), sourceDoc, time.Now().Unix())
	if err != nil {
		return InvalidID, fmt.Errorf("insert entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		// Duplicate-key race: another caller inserted the same surface.
		existing, found, lookupErr := s.FindEntityBySurface(ctx, name, entityType)
		if lookupErr != nil {
			return InvalidID, lookupErr
		}
		if !found {
			return InvalidID, ErrEntityNotFound
		}
		return existing.ID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InvalidID, fmt.Errorf("entity id: %w", err)
	}
	return id, nil
}

// AppendEntitySource attaches additional source-document provenance to an
// existing entity. The document list is the only mutable entity field.
func (s *Store) AppendEntitySource(ctx context.Context, id int64, sourceDoc string) error {
	sourceDoc = strings.TrimSpace(sourceDoc)
	if sourceDoc == "" {
		return nil
	}
	var current sql.NullString
	if err := s.db.GetContext(ctx, &current, `SELECT source_doc FROM entities WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityNotFound
		}
		return fmt.Errorf("load entity source: %w", err)
	}
	docs := strings.Split(current.String, ";")
	for _, doc := range docs {
		if strings.TrimSpace(doc) == sourceDoc {
			return nil
		}
	}
	merged := sourceDoc
	if strings.TrimSpace(current.String) != "" {
		merged = current.String + ";" + sourceDoc
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE entities SET source_doc = ? WHERE id = ?`, merged, id); err != nil {
		return fmt.Errorf("append entity source: %w", err)
	}
	return nil
}

// FindEntityBySurface returns the entity with the exact surface+type pair.
func (s *Store) FindEntityBySurface(ctx context.Context, name, entityType string) (Entity, bool, error) {
	var row entityRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, entity_type, embedding, source_doc, created_at
                 FROM entities WHERE name = ? AND entity_type = ?`,
		strings.TrimSpace(name), strings.TrimSpace(entityType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entity{}, false, nil
		}
		return Entity{}, false, fmt.Errorf("find entity: %w", err)
	}
	return row.toEntity(), true, nil
}

// GetEntity fetches an entity by id.
func (s *Store) GetEntity(ctx context.Context, id int64) (Entity, error) {
	var row entityRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, entity_type, embedding, source_doc, created_at FROM entities WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entity{}, ErrEntityNotFound
		}
		return Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return row.toEntity(), nil
}

// FindEntitiesByType returns every entity of the given type with decoded
// embeddings.
func (s *Store) FindEntitiesByType(ctx context.Context, entityType string) ([]Entity, error) {
	var rows []entityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, entity_type, embedding, source_doc, created_at
                 FROM entities WHERE entity_type = ? ORDER BY id`, strings.TrimSpace(entityType))
	if err != nil {
		return nil, fmt.Errorf("entities by type: %w", err)
	}
	entities := make([]Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, row.toEntity())
	}
	return entities, nil
}

// AllEntities returns every stored entity with decoded embeddings.
func (s *Store) AllEntities(ctx context.Context) ([]Entity, error) {
	var rows []entityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, entity_type, embedding, source_doc, created_at FROM entities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all entities: %w", err)
	}
	entities := make([]Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, row.toEntity())
	}
	return entities, nil
}

// EntityRows returns the undecoded rows for the manual-scan fallback.
func (s *Store) EntityRows(ctx context.Context, entityType string) ([]EntityRow, error) {
	var rows []EntityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, COALESCE(embedding, '') AS embedding
                 FROM entities WHERE entity_type = ? ORDER BY id`, strings.TrimSpace(entityType))
	if err != nil {
		return nil, fmt.Errorf("entity rows: %w", err)
	}
	return rows, nil
}

// SimilarEntities returns entities of the given type whose stored
// embedding scores at or above threshold against vec, best first.
func (s *Store) SimilarEntities(ctx context.Context, entityType string, vec []float32, threshold float64, limit int) ([]ScoredEntity, error) {
	if len(vec) == 0 {
		return nil, errors.New("query vector required")
	}
	entities, err := s.FindEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return ScoreEntities(entities, vec, threshold, limit), nil
}

// ScoreEntities applies the similarity threshold over already-loaded
// entities; shared by the primary path and the manual fallback.
func ScoreEntities(entities []Entity, vec []float32, threshold float64, limit int) []ScoredEntity {
	var matched []ScoredEntity
	for _, ent := range entities {
		if len(ent.Embedding) == 0 {
			continue
		}
		score := simmath.Cosine(vec, ent.Embedding)
		if score >= threshold {
			matched = append(matched, ScoredEntity{Entity: ent, Score: score})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// textMatchRank orders text matches: exact > prefix > middle word >
// substring.
func textMatchRank(name, query string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	query = strings.ToLower(strings.TrimSpace(query))
	switch {
	case name == query:
		return 0
	case strings.HasPrefix(name, query):
		return 1
	default:
		for _, word := range strings.Fields(name) {
			if word == query {
				return 2
			}
		}
		if strings.Contains(name, query) {
			return 3
		}
	}
	return 4
}

// FindEntitiesByTextMatch performs the deterministic text fallback used
// when similarity search yields nothing: case-insensitive substring
// match, ranked exact > prefix > middle-word > substring, capped at
// limit.
func (s *Store) FindEntitiesByTextMatch(ctx context.Context, query string, limit int) ([]Entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var rows []entityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, entity_type, embedding, source_doc, created_at
                 FROM entities WHERE lower(name) LIKE ?`, pattern)
	if err != nil {
		return nil, fmt.Errorf("entity text match: %w", err)
	}
	entities := make([]Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, row.toEntity())
	}
	// Stable rank sort keeps insertion order within equal ranks.
	sort.SliceStable(entities, func(i, j int) bool {
		return textMatchRank(entities[i].Name, query) < textMatchRank(entities[j].Name, query)
	})
	if len(entities) > limit {
		entities = entities[:limit]
	}
	return entities, nil
}

// InsertRelation records a directed edge. Both endpoints must reference
// existing entities; SQLite foreign keys enforce the invariant.
func (s *Store) InsertRelation(ctx context.Context, sourceID, targetID int64, relationType, sourceDoc string) (int64, error) {
	relationType = strings.TrimSpace(relationType)
	if relationType == "" {
		return 0, errors.New("relation type required")
	}
	if sourceID == InvalidID || targetID == InvalidID {
		return 0, errors.New("relation endpoint unresolved")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relations (source_id, target_id, relation_type, source_doc, created_at)
                 VALUES (?, ?, ?, ?, ?)`,
		sourceID, targetID, relationType, sourceDoc, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert relation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("relation id: %w", err)
	}
	return id, nil
}

// FindRelationsByEntity returns every relation where the entity is either
// endpoint, with endpoint names joined in.
func (s *Store) FindRelationsByEntity(ctx context.Context, entityID int64) ([]Relation, error) {
	var rows []relationRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT r.id, r.source_id, r.target_id, r.relation_type, r.source_doc, r.created_at,
                        src.name AS source_name, tgt.name AS target_name
                 FROM relations r
                 JOIN entities src ON src.id = r.source_id
                 JOIN entities tgt ON tgt.id = r.target_id
                 WHERE r.source_id = ? OR r.target_id = ?
                 ORDER BY r.id`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("relations by entity: %w", err)
	}
	relations := make([]Relation, 0, len(rows))
	for _, row := range rows {
		relations = append(relations, row.toRelation())
	}
	return relations, nil
}

// Counts reports the number of stored entities and relations.
func (s *Store) Counts(ctx context.Context) (entities, relations int64, err error) {
	if err = s.db.GetContext(ctx, &entities, `SELECT COUNT(*) FROM entities`); err != nil {
		return 0, 0, fmt.Errorf("count entities: %w", err)
	}
	if err = s.db.GetContext(ctx, &relations, `SELECT COUNT(*) FROM relations`); err != nil {
		return 0, 0, fmt.Errorf("count relations: %w", err)
	}
	return entities, relations, nil
}

// Reset removes every relation and entity; a full corpus reset is the
// only sanctioned deletion path.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relations`); err != nil {
		tx.Rollback()
		return fmt.Errorf("reset relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		tx.Rollback()
		return fmt.Errorf("reset entities: %w", err)
	}
	return tx.Commit()
}

// DecodeEmbedding tolerantly decodes a stored embedding column. Both the
// flat vector and batch-of-one shapes are accepted; anything else yields
// nil.
func DecodeEmbedding(raw string) []float32 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	var flat []float32
	if err := json.Unmarshal([]byte(raw), &flat); err == nil {
		return flat
	}
	var batched [][]float32
	if err := json.Unmarshal([]byte(raw), &batched); err == nil {
		return simmath.Normalize(batched)
	}
	return nil
}
