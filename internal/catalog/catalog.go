package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/fideprep/fideprep-api/internal/logger"
	"github.com/fideprep/fideprep-api/internal/storage"
)

// Content is a decoded section body.
type Content map[string]any

// Catalog is the read side of the content registry: ordered section ids from
// the repo, bodies from the blob store.
type Catalog struct {
	repo         Repo
	blobs        storage.BlobStore
	cache        ContentCache
	templatesKey string
	log          *logger.Logger
}

type Option func(*Catalog)

func WithCache(c ContentCache) Option { return func(cat *Catalog) { cat.cache = c } }

func WithTemplatesKey(key string) Option { return func(cat *Catalog) { cat.templatesKey = key } }

func WithLogger(l *logger.Logger) Option { return func(cat *Catalog) { cat.log = l } }

func New(repo Repo, blobs storage.BlobStore, opts ...Option) *Catalog {
	c := &Catalog{
		repo:         repo,
		blobs:        blobs,
		templatesKey: "templates/base_templates_oral.json",
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(0)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	c.log = c.log.With("service", "Catalog")
	return c
}

func (c *Catalog) Repo() Repo { return c.repo }

// SectionIDs lists ids for level/mode/language in catalog order. An empty
// result is not an error here; selection policies reject it.
func (c *Catalog) SectionIDs(ctx context.Context, level Level, mode Mode, lang Language) ([]string, error) {
	secs, err := c.repo.ListSections(ctx, level, mode, lang)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(secs))
	for i, s := range secs {
		ids[i] = s.ID
	}
	return ids, nil
}

func (c *Catalog) Section(ctx context.Context, level Level, mode Mode, id string) (Section, error) {
	return c.repo.GetSection(ctx, level, mode, id)
}

// Content loads the body of sec. Missing or unreadable bodies are logged and
// come back empty; only context errors are returned.
func (c *Catalog) Content(ctx context.Context, sec Section) (Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cacheKey := string(sec.Level) + ":" + string(sec.Mode) + ":" + sec.ID
	if b, ok, err := c.cache.Get(ctx, cacheKey); err != nil {
		c.log.Warn("content cache get failed", "key", cacheKey, "error", err)
	} else if ok {
		var out Content
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
	}

	body, err := c.readJSON(sec.Ref())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.log.Warn("section content missing", "level", sec.Level, "mode", sec.Mode, "section_id", sec.ID, "ref", sec.Ref())
		} else {
			c.log.Error("section content unreadable", "section_id", sec.ID, "ref", sec.Ref(), "error", err)
		}
		return Content{}, nil
	}
	body["id"] = sec.ID

	if sec.Mode == ModeSpeaking {
		c.applyTemplates(body, sec.Language)
	}

	if b, err := json.Marshal(body); err == nil {
		if err := c.cache.Set(ctx, cacheKey, b); err != nil {
			c.log.Warn("content cache set failed", "key", cacheKey, "error", err)
		}
	}
	return body, nil
}

// applyTemplates merges the shared speaking template named by each item's
// "template" field under the item's own fields.
func (c *Catalog) applyTemplates(body Content, lang Language) {
	items, ok := body["items"].([]any)
	if !ok || len(items) == 0 {
		return
	}
	all, err := c.readJSON(c.templatesKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Error("base templates unreadable", "ref", c.templatesKey, "error", err)
		}
		return
	}
	key := strings.ToLower(string(lang))
	if l, ok := body["language"].(string); ok && l != "" {
		key = strings.ToLower(l)
	}
	langTemplates, _ := all[key].(map[string]any)
	if len(langTemplates) == 0 {
		return
	}
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := item["template"].(string)
		tpl, ok := langTemplates[name].(map[string]any)
		if name == "" || !ok {
			continue
		}
		items[i] = MergeDefaults(tpl, item)
	}
}

// MergeDefaults returns defaults overlaid with item; item wins on conflict.
func MergeDefaults(defaults, item map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(item))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (c *Catalog) readJSON(key string) (Content, error) {
	rc, err := c.blobs.Get(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var out Content
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Content{}
	}
	return out, nil
}
