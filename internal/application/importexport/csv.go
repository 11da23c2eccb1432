package importexport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Codificaciones aceptadas en la importación.
const (
	CharsetAuto        = "auto"
	CharsetUTF8        = "utf-8"
	CharsetLatin1      = "iso-8859-1"
	CharsetWindows1252 = "windows-1252"
)

// Errores de lectura del archivo.
var (
	ErrEmptyFile      = errors.New("archivo vacío")
	ErrMissingColumn  = errors.New("falta la columna item_code en el encabezado")
	ErrUnknownCharset = errors.New("codificación no soportada")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var headerAliases = map[string]string{
	"code":          ColItemCode,
	"sku":           ColItemCode,
	"stock":         ColCurrentStock,
	"quantity":      ColCurrentStock,
	"min_level":     ColMinStock,
	"max_level":     ColMaxStock,
	"batch_id":      ColBatchNumber,
	"batch":         ColBatchNumber,
	"location_code": ColLocation,
}

// decode convierte la entrada a UTF-8. En modo auto: UTF-8 válido se usa tal cual
// (sin BOM); si no, se interpreta como Windows-1252 (superconjunto imprimible de ISO-8859-1).
func decode(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", CharsetAuto:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("leer archivo: %w", err)
		}
		data = bytes.TrimPrefix(data, utf8BOM)
		if utf8.Valid(data) {
			return bytes.NewReader(data), nil
		}
		return transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()), nil
	case CharsetUTF8, "utf8":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("leer archivo: %w", err)
		}
		return bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)), nil
	case CharsetLatin1, "latin1", "latin-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case CharsetWindows1252, "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, charset)
}

// normalizeHeader pasa a minúsculas, cambia espacios por "_" y resuelve alias.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	if canonical, ok := headerAliases[h]; ok {
		return canonical
	}
	return h
}

// ReadCSV lee filas del catálogo guiándose por el encabezado: columnas desconocidas se ignoran
// y las opcionales ausentes quedan vacías. Detecta "," o ";" como separador.
func ReadCSV(r io.Reader, charset string) ([]CatalogRow, error) {
	decoded, err := decode(r, charset)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("decodificar archivo: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	cols := make([]string, len(header))
	hasCode := false
	for i, h := range header {
		cols[i] = normalizeHeader(h)
		if cols[i] == ColItemCode {
			hasCode = true
		}
	}
	if !hasCode {
		return nil, ErrMissingColumn
	}

	var rows []CatalogRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("leer fila: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		row := CatalogRow{Line: line}
		for i, v := range record {
			if i < len(cols) {
				row.set(cols[i], strings.TrimSpace(v))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV escribe el encabezado fijo y las filas en UTF-8.
func WriteCSV(w io.Writer, rows []CatalogRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func detectDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
