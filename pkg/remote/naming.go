/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: naming.go
Description: Stored file naming for converted tabular content.
*/

package remote

import "regexp"

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// ConvertedName derives the tabular file name from a source document name
// by replacing a trailing .pdf (any case) with .csv
func ConvertedName(sourceName string) string {
	if pdfSuffix.MatchString(sourceName) {
		return pdfSuffix.ReplaceAllString(sourceName, ".csv")
	}
	return sourceName
}
