package module

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardnew/mung"

	"github.com/ardnew/zero/lang"
)

// PathEnv names the environment variable listing directories searched for
// named modules ("name.0") not found next to the importing module.
const PathEnv = "ZEROPATH"

// IsURL reports whether address names a remote module.
func IsURL(address string) bool {
	u, err := url.Parse(address)

	return err == nil && u.Scheme != "" && u.Host != ""
}

// named reports whether spec is a bare module name rather than a path.
func named(spec string) bool {
	return !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") &&
		!strings.ContainsRune(spec, '/') && strings.HasSuffix(spec, lang.Extension)
}

// SearchPath returns the directories to search for named modules: dirs,
// followed by the entries of the list value (formatted like PATH), with
// duplicates and non-directories removed.
func SearchPath(value string, dirs ...string) []string {
	joined := mung.Make(
		mung.WithSubjectItems(value),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(dirs...),
		mung.WithFilter(isDir),
	).String()

	var out []string

	for _, dir := range filepath.SplitList(joined) {
		if dir != "" {
			out = append(out, dir)
		}
	}

	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// resolve returns the canonical address of spec imported by the module at
// base. URLs are resolved against URL bases; everything else is a file path
// relative to the directory of base, or the working directory if base is
// empty. Named modules missing beside base are looked up in search.
func resolve(base, spec string, search []string) (string, error) {
	if spec == "" {
		return "", ErrAddress.With(slog.String("base", base))
	}

	if IsURL(spec) {
		u, err := url.Parse(spec)
		if err != nil {
			return "", ErrAddress.Wrap(err).With(slog.String("address", spec))
		}

		return u.String(), nil
	}

	if IsURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return "", ErrAddress.Wrap(err).With(slog.String("address", base))
		}

		ref, err := url.Parse(spec)
		if err != nil {
			return "", ErrAddress.Wrap(err).With(slog.String("address", spec))
		}

		return b.ResolveReference(ref).String(), nil
	}

	if filepath.IsAbs(spec) {
		return filepath.Clean(spec), nil
	}

	dir := "."
	if base != "" {
		dir = filepath.Dir(base)
	}

	local, err := filepath.Abs(filepath.Join(dir, spec))
	if err != nil {
		return "", ErrAddress.Wrap(err).With(slog.String("address", spec))
	}

	if !named(spec) || isFile(local) {
		return local, nil
	}

	for _, d := range search {
		if path := filepath.Join(d, spec); isFile(path) {
			return filepath.Abs(path)
		}
	}

	return local, nil
}
