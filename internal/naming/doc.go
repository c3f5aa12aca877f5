// Package naming infers which part of an aerial-photo filename identifies the
// flight strip.
//
// Filenames of one survey block are split on their single separator into
// subparts. Subparts are ranked by how often their values repeat across a
// deterministic sample; the least repetitive position (the photo serial) is
// dropped first. After each drop the remaining subparts are rejoined into
// candidate strip labels and the photos sharing a label are handed to a
// Verifier, which accepts the scheme once every label group lies on a line.
// Accepted schemes are persisted through a Cache so a block is analysed once.
package naming
