// Package namingcache persists accepted flight strip naming schemes per survey
// block so a block is analysed only once.
//
// Two backends implement the same Backend interface. FileStore keeps the
// historical name_flugstreifen.json layout and serializes writers with an
// in-process mutex plus a gofrs/flock lock file, so several flightstrip
// processes can share one processing root. SQLiteStore keeps the same data in
// an embedded modernc.org/sqlite database for roots with many blocks.
//
// Unreadable or corrupt storage is never fatal: lookups report a miss and log
// a warning, and the next successful Store rewrites the data.
package namingcache
