package route

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FallbackName используется, когда из имени файла не удалось получить название маршрута.
const FallbackName = "Route"

var (
	// ErrEmptyRoute: в файле не нашлось ни одной станции.
	ErrEmptyRoute = errors.New("route: file contains no stations")
	// ErrUnreadableFile: файл маршрута не удалось прочитать.
	ErrUnreadableFile = errors.New("route: file is unreadable")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Route: список станций одной поездки в порядке следования.
// После загрузки не изменяется; новый маршрут полностью заменяет предыдущий.
type Route struct {
	Name     string
	Stations []string
}

// First возвращает начальную станцию.
func (r Route) First() string { return r.Stations[0] }

// Last возвращает конечную станцию.
func (r Route) Last() string { return r.Stations[len(r.Stations)-1] }

// Len: количество станций.
func (r Route) Len() int { return len(r.Stations) }

// Clone возвращает копию маршрута со своим срезом станций.
func (r Route) Clone() Route {
	st := make([]string, len(r.Stations))
	copy(st, r.Stations)
	return Route{Name: r.Name, Stations: st}
}

// Parse разбирает содержимое файла со списком станций (одна станция на строку).
// Сначала пробуем UTF-8, при невалидных байтах: Latin-1; кодировка сама по себе
// никогда не приводит к ошибке. Пустые строки отбрасываются.
func Parse(data []byte, filename string) (Route, error) {
	text, err := decode(data)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	// CRLF (Windows) и одиночный CR (старый Mac) сводим к LF
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	stations := make([]string, 0, 16)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			stations = append(stations, line)
		}
	}
	if len(stations) == 0 {
		return Route{}, ErrEmptyRoute
	}
	return Route{Name: NameFromFilename(filename), Stations: stations}, nil
}

// ReadFile читает и разбирает файл маршрута с диска.
func ReadFile(path string) (Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return Parse(data, path)
}

// NameFromFilename: имя файла без каталога и расширения либо FallbackName.
func NameFromFilename(filename string) string {
	// загрузки из браузера под Windows приходят с обратными слэшами
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return FallbackName
	}
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		return FallbackName
	}
	return name
}

func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
