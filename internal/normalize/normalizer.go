// Package normalize projects raw upstream items onto flat records.
package normalize

import (
	"encoding/json"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

// Mode selects how ExtraFields combine with CoreFields.
type Mode int

const (
	// ModeExtend keeps the core fields and adds extra fields not already
	// among them.
	ModeExtend Mode = iota
	// ModeReplace uses exactly the extra fields.
	ModeReplace
)

// UserStyle selects how resolved user attributes are attached.
type UserStyle int

const (
	// UserFlat writes user_<attr> fields and drops the author field.
	UserFlat UserStyle = iota
	// UserNested writes a single "user" object.
	UserNested
)

const (
	fieldURLs       = "urls"
	fieldDomains    = "domains"
	fieldEntities   = "entities"
	fieldUser       = "user"
	fieldUserStatus = "user_status"
	userPrefix      = "user_"

	userUnavailable = "not available"
)

type Options struct {
	CoreFields  []string
	ExtraFields []string
	Mode        Mode

	// TimestampField is converted from epoch seconds to TimestampLayout
	// when ConvertTimestamp is set.
	TimestampField   string
	ConvertTimestamp bool

	// AuthorField on the item is matched against UserMatchField on the
	// returned users.
	AuthorField        string
	UserMatchField     string
	UserFields         []string
	UserStyle          UserStyle
	UserTimestampField string

	// TextField is scanned for URLs.
	TextField string
	// AnnotationsField holds domain/entity annotations.
	AnnotationsField string
}

// Result is a normalized record and the annotation counts found on it.
type Result struct {
	Record   domain.Record
	Domains  *session.Counts
	Entities *session.Counts
	// UserFound is false when the item had an author but no matching user
	// was returned.
	UserFound bool
}

type Normalizer struct {
	opts   Options
	fields []string
	logger *slog.Logger
}

// New validates opts. ModeReplace needs at least one extra field.
func New(opts Options, logger *slog.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var fields []string
	switch opts.Mode {
	case ModeExtend:
		fields = appendUnique(nil, opts.CoreFields...)
		fields = appendUnique(fields, opts.ExtraFields...)
	case ModeReplace:
		if len(opts.ExtraFields) == 0 {
			return nil, domain.Configf("replacing core fields requires extra fields")
		}
		fields = appendUnique(nil, opts.ExtraFields...)
	default:
		return nil, domain.Configf("unknown field mode %d", opts.Mode)
	}
	if opts.AuthorField != "" && opts.UserMatchField == "" {
		return nil, domain.Configf("author field %q needs a user match field", opts.AuthorField)
	}
	return &Normalizer{opts: opts, fields: fields, logger: logger}, nil
}

// Fields is the projected field list.
func (n *Normalizer) Fields() []string {
	return append([]string(nil), n.fields...)
}

// Normalize flattens one item. Requested fields the item lacks are left out;
// nothing about a malformed item makes this fail.
func (n *Normalizer) Normalize(item domain.Item) Result {
	res := Result{UserFound: true}
	raw := item.Raw

	for _, field := range n.fields {
		if v, ok := raw.Get(field); ok {
			res.Record.Set(field, json.RawMessage(v.Raw))
		}
	}

	if n.opts.ConvertTimestamp && n.opts.TimestampField != "" {
		if v, ok := raw.Get(n.opts.TimestampField); ok && v.Type == gjson.Number && res.Record.Has(n.opts.TimestampField) {
			res.Record.MustSetValue(n.opts.TimestampField, domain.FormatEpoch(v.Float()))
		}
	}

	if n.opts.TextField != "" {
		if text, ok := raw.Get(n.opts.TextField); ok {
			if urls := ExtractURLs(text.String()); len(urls) > 0 {
				res.Record.MustSetValue(fieldURLs, urls)
			}
		}
	}

	if n.opts.AnnotationsField != "" {
		if d, e, ok := CountAnnotations(raw, n.opts.AnnotationsField); ok {
			res.Domains, res.Entities = d, e
			res.Record.MustSetValue(fieldDomains, d)
			res.Record.MustSetValue(fieldEntities, e)
		}
	}

	if n.opts.AuthorField != "" && res.Record.Has(n.opts.AuthorField) {
		res.UserFound = n.attachUser(&res.Record, item)
	}
	return res
}

func (n *Normalizer) attachUser(rec *domain.Record, item domain.Item) bool {
	author := item.Raw.String(n.opts.AuthorField)
	user, ok := FindUser(item.Users, item.Index, n.opts.UserMatchField, author)
	if !ok {
		n.logger.Info("no user object matches item author",
			"item", item.Raw.String("id"), "author", author, "users", len(item.Users))
		if n.opts.UserStyle == UserFlat {
			rec.Delete(n.opts.AuthorField)
		}
		rec.MustSetValue(fieldUserStatus, userUnavailable)
		return false
	}

	var attrs domain.Record
	for _, field := range n.opts.UserFields {
		v, ok := user.Get(field)
		if !ok || v.Type == gjson.Null {
			continue
		}
		if n.opts.ConvertTimestamp && field == n.opts.UserTimestampField && v.Type == gjson.Number {
			attrs.MustSetValue(field, domain.FormatEpoch(v.Float()))
			continue
		}
		attrs.Set(field, json.RawMessage(v.Raw))
	}

	switch n.opts.UserStyle {
	case UserNested:
		rec.MustSetValue(fieldUser, attrs)
	default:
		rec.Delete(n.opts.AuthorField)
		for _, name := range attrs.Names() {
			v, _ := attrs.Get(name)
			rec.Set(userPrefix+name, v)
		}
	}
	return true
}

// FindUser returns the user whose matchField equals author. The user at
// position hint is tried first since that is where it usually is; after that
// every user is checked in turn. This is a linear scan, which is fine for
// the at most 100 users a page carries.
func FindUser(users []domain.RawItem, hint int, matchField, author string) (domain.RawItem, bool) {
	if author == "" {
		return domain.RawItem{}, false
	}
	if hint >= 0 && hint < len(users) && users[hint].String(matchField) == author {
		return users[hint], true
	}
	for _, u := range users {
		if u.String(matchField) == author {
			return u, true
		}
	}
	return domain.RawItem{}, false
}

func appendUnique(dst []string, names ...string) []string {
	for _, name := range names {
		dup := false
		for _, have := range dst {
			if have == name {
				dup = true
				break
			}
		}
		if !dup && name != "" {
			dst = append(dst, name)
		}
	}
	return dst
}
