package results

import (
	"encoding/csv"
	"encoding/hex"
	"io"
	"os"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Header is the first row of every result file.
var Header = []string{"PID", "trial_num", "audio_files", "responses", "rt", "accuracy"}

// rows lays out one row per trial. Columns shorter than the longest are
// padded with empty cells.
func rows(pid int, session Session) [][]string {
	n := max(len(session.Records), len(session.Correctness))
	out := make([][]string, 0, n)
	id := strconv.Itoa(pid)
	for i := 0; i < n; i++ {
		row := []string{id, "", "", "", "", ""}
		if i < len(session.Records) {
			r := session.Records[i]
			row[1] = strconv.Itoa(r.Trial)
			row[2] = r.StimulusID
			row[3] = r.Choice.String()
			row[4] = strconv.FormatInt(r.RTMillis, 10)
		}
		if i < len(session.Correctness) {
			row[5] = string(session.Correctness[i])
		}
		out = append(out, row)
	}
	return out
}

// writeSession writes the CSV, syncs it and returns its digest.
func writeSession(f *os.File, pid int, session Session) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(io.MultiWriter(f, h))
	if err := w.Write(Header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows(pid, session)); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the hex blake2b-256 digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
