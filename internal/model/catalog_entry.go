package model

import "time"

// CatalogEntry represents one title of the streaming catalog as stored in
// the `catalog_entries` table.  Optional columns are pointers so that a
// missing value is persisted as NULL rather than an empty string.
//
// Fields:
//  ID          – primary key identifier (auto-increment).
//  ShowID      – unique identifier from the source dataset (e.g. "s1").
//  Type        – "Movie" or "TV Show".
//  Title       – title of the entry.
//  Director    – director(s), may be NULL.
//  Cast        – cast list, may be NULL.
//  Country     – production countries, may be NULL.
//  DateAdded   – date the title was added to the catalog, NULL when unparseable.
//  YearAdded   – year derived from DateAdded; 0 means invalid/unknown.
//  ReleaseYear – original release year; 0 means invalid.
//  Rating      – audience rating code (PG, TV-MA, ...).
//  Duration    – runtime or season count ("90 min", "2 Seasons").
//  ListedIn    – comma separated genre list.
//  Description – free text synopsis, may be NULL.
type CatalogEntry struct {
	ID          uint64     // catalog_entries.id
	ShowID      string     // catalog_entries.show_id
	Type        string     // catalog_entries.type
	Title       string     // catalog_entries.title
	Director    *string    // catalog_entries.director
	Cast        *string    // catalog_entries.cast_members
	Country     *string    // catalog_entries.country
	DateAdded   *time.Time // catalog_entries.date_added
	YearAdded   int        // catalog_entries.year_added
	ReleaseYear int        // catalog_entries.release_year
	Rating      string     // catalog_entries.rating
	Duration    string     // catalog_entries.duration
	ListedIn    string     // catalog_entries.listed_in
	Description *string    // catalog_entries.description
}

// String returns the title, which is how entries are labelled in logs.
func (e CatalogEntry) String() string {
	return e.Title
}
