package rules

import (
	"path/filepath"
	"strings"

	enry "github.com/go-enry/go-enry/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/tidwall/match"
	"golang.org/x/text/cases"
)

const detectCacheSize = 256

// Database is the parsed rule set: file types, region hierarchy and color
// scheme definitions.
type Database struct {
	types   []*FileType
	byName  map[string]*FileType
	regions map[string]string
	schemes []*SchemeDef

	detectCache *lru.Cache
}

type detectResult struct {
	ft *FileType
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	cache, _ := lru.New(detectCacheSize)
	return &Database{
		byName:      make(map[string]*FileType),
		regions:     make(map[string]string),
		detectCache: cache,
	}
}

// addTypes adds file types; a type with the name of an existing one
// replaces it in place.
func (db *Database) addTypes(types []*FileType, regions map[string]string) {
	for _, ft := range types {
		if old, ok := db.byName[ft.Name]; ok {
			for i, t := range db.types {
				if t == old {
					db.types[i] = ft
					break
				}
			}
		} else {
			db.types = append(db.types, ft)
		}
		db.byName[ft.Name] = ft
	}
	for r, parent := range regions {
		db.regions[r] = parent
	}
	db.detectCache.Purge()
}

// addSchemes adds scheme definitions; a scheme with the class and name of
// an existing one replaces it in place.
func (db *Database) addSchemes(schemes []*SchemeDef) {
	for _, s := range schemes {
		replaced := false
		for i, old := range db.schemes {
			if old.Class == s.Class && old.Name == s.Name {
				db.schemes[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			db.schemes = append(db.schemes, s)
		}
	}
}

// FileTypes returns the file types in catalog order.
func (db *Database) FileTypes() []*FileType {
	out := make([]*FileType, len(db.types))
	copy(out, db.types)
	return out
}

// Type returns the file type with the given name, or nil.
func (db *Database) Type(name string) *FileType {
	return db.byName[name]
}

// EnsureDefault returns the default file type, adding an empty one when
// the rule set defines none.
func (db *Database) EnsureDefault() *FileType {
	if ft := db.byName[DefaultTypeName]; ft != nil {
		return ft
	}
	ft := NewFileType(DefaultTypeName, "", "Plain text")
	db.addTypes([]*FileType{ft}, nil)
	return ft
}

// RegionParent returns the parent of a region in the region hierarchy.
func (db *Database) RegionParent(region string) (string, bool) {
	p, ok := db.regions[region]
	return p, ok
}

// Schemes returns the scheme definitions of a palette class.
func (db *Database) Schemes(class string) []*SchemeDef {
	var out []*SchemeDef
	for _, s := range db.schemes {
		if s.Class == class {
			out = append(out, s)
		}
	}
	return out
}

// Scheme returns the scheme definition with the given class and name.
func (db *Database) Scheme(class, name string) *SchemeDef {
	for _, s := range db.schemes {
		if s.Class == class && s.Name == name {
			return s
		}
	}
	return nil
}

// MergeUserColors merges a user color definition file into the scheme
// definitions.
func (db *Database) MergeUserColors(path string) error {
	schemes, err := ParseColorFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	db.addSchemes(schemes)
	return nil
}

// MergeUserRules merges a user rule file: types with the name of an
// existing type replace it, new types are appended.
func (db *Database) MergeUserRules(path string) error {
	types, regions, err := ParseRuleFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	db.addTypes(types, regions)
	return nil
}

// Detect chooses the file type for a buffer from its file name and first
// lines. Name patterns weigh more than first-line patterns; when neither
// matches, the language guessed from the name, shebang or modeline is
// looked up among the types' language names. Nil means no match.
func (db *Database) Detect(fileName string, firstLines []string) *FileType {
	base := filepath.Base(fileName)
	first := ""
	if len(firstLines) > 0 {
		first = firstLines[0]
	}
	key := base + "\x00" + first
	if v, ok := db.detectCache.Get(key); ok {
		return v.(detectResult).ft
	}

	ft := db.detectByRules(base, first)
	if ft == nil {
		ft = db.detectByLanguage(base, firstLines)
	}
	db.detectCache.Add(key, detectResult{ft: ft})
	return ft
}

func (db *Database) detectByRules(base, first string) *FileType {
	lower := strings.ToLower(base)
	var best *FileType
	bestScore := 0
	for _, ft := range db.types {
		score := 0
		for _, p := range ft.patterns {
			if match.Match(lower, strings.ToLower(p)) {
				score += 2
				break
			}
		}
		for _, re := range ft.firstLines {
			if re.MatchString(first) {
				score++
				break
			}
		}
		if score > bestScore {
			best, bestScore = ft, score
		}
	}
	return best
}

func (db *Database) detectByLanguage(base string, firstLines []string) *FileType {
	lang, safe := enry.GetLanguageByFilename(base)
	if !safe || lang == "" {
		lang, safe = enry.GetLanguageByExtension(base)
	}
	if (!safe || lang == "") && len(firstLines) > 0 {
		content := []byte(strings.Join(firstLines, "\n") + "\n")
		if lang, safe = enry.GetLanguageByShebang(content); !safe || lang == "" {
			lang, safe = enry.GetLanguageByModeline(content)
		}
	}
	if !safe || lang == "" {
		return nil
	}

	fold := cases.Fold()
	want := fold.String(lang)
	for _, ft := range db.types {
		for _, l := range ft.languages {
			if fold.String(l) == want {
				return ft
			}
		}
	}
	for _, ft := range db.types {
		if fold.String(ft.Name) == want {
			return ft
		}
	}
	return nil
}
