package frame

import "strings"

// FindRecord returns the first record whose DIF/VIF key starts with the
// given uppercase hex pattern ("04" matches any 32 bit integer record,
// "04843C" exactly one).
func (t *Telegram) FindRecord(pattern string) *Record {
	pattern = strings.ToUpper(pattern)
	for i := range t.Records {
		if strings.HasPrefix(t.Records[i].Key, pattern) {
			return &t.Records[i]
		}
	}
	return nil
}

// ExtractDouble returns the scaled value of the first record matching
// the DIF/VIF pattern.
func (t *Telegram) ExtractDouble(pattern string) (float64, bool) {
	rec := t.FindRecord(pattern)
	if rec == nil || !rec.HasValue {
		return 0, false
	}
	return rec.Value, true
}
