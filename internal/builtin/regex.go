package builtin

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	gintersect "github.com/yashtewari/glob-intersection"

	"github.com/polywasm/policyhost/internal/value"
)

// RegexGroup registers regular-expression and glob matching built-ins.
// Compiled patterns are cached process-wide, since a policy module tends
// to call the same handful of patterns across many evaluations.
func RegexGroup(r *Registry) {
	r.Register("regex.match", 2, builtinRegexMatch)
	r.Register("regex.is_valid", 1, builtinRegexIsValid)
	r.Register("regex.find_n", 3, builtinRegexFindN)
	r.Register("regex.split", 2, builtinRegexSplit)
	r.Register("regex.globs_match", 2, builtinGlobIntersect)
	r.Register("regex.template_match", 4, builtinRegexTemplateMatch)
	r.Register("glob.match", 3, builtinGlobMatch)
}

var (
	regexpCacheLock sync.Mutex
	regexpCache     = map[string]*regexp.Regexp{}

	globCacheLock sync.Mutex
	globCache     = map[string]glob.Glob{}
)

func getRegexp(pat string) (*regexp.Regexp, error) {
	regexpCacheLock.Lock()
	defer regexpCacheLock.Unlock()
	if re, ok := regexpCache[pat]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, err
	}
	regexpCache[pat] = re
	return re, nil
}

func getGlob(pat string, separators []rune) (glob.Glob, error) {
	key := pat
	if len(separators) > 0 {
		key = string(separators) + "\x00" + pat
	}
	globCacheLock.Lock()
	defer globCacheLock.Unlock()
	if g, ok := globCache[key]; ok {
		return g, nil
	}
	var g glob.Glob
	var err error
	if len(separators) > 0 {
		g, err = glob.Compile(pat, separators...)
	} else {
		g, err = glob.Compile(pat)
	}
	if err != nil {
		return nil, err
	}
	globCache[key] = g
	return g, nil
}

func builtinRegexMatch(_ *Context, args []value.Value) (value.Value, error) {
	pat, err := stringArg("regex.match", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s, err := stringArg("regex.match", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	re, compErr := getRegexp(pat)
	if compErr != nil {
		return value.Value{}, parseErrorf("regex.match", "%s", compErr)
	}
	return value.Bool(re.MatchString(s)), nil
}

func builtinRegexIsValid(_ *Context, args []value.Value) (value.Value, error) {
	pat, err := stringArg("regex.is_valid", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	_, compErr := getRegexp(pat)
	return value.Bool(compErr == nil), nil
}

func builtinRegexFindN(_ *Context, args []value.Value) (value.Value, error) {
	pat, err := stringArg("regex.find_n", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s, err := stringArg("regex.find_n", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	n, err := intArg("regex.find_n", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	re, compErr := getRegexp(pat)
	if compErr != nil {
		return value.Value{}, parseErrorf("regex.find_n", "%s", compErr)
	}
	matches := re.FindAllString(s, int(n))
	out := make([]value.Value, len(matches))
	for i, m := range matches {
		out[i] = value.String(m)
	}
	return value.Array(out...), nil
}

func builtinRegexSplit(_ *Context, args []value.Value) (value.Value, error) {
	pat, err := stringArg("regex.split", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s, err := stringArg("regex.split", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	re, compErr := getRegexp(pat)
	if compErr != nil {
		return value.Value{}, parseErrorf("regex.split", "%s", compErr)
	}
	parts := re.Split(s, -1)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.Array(out...), nil
}

func builtinGlobIntersect(_ *Context, args []value.Value) (value.Value, error) {
	s1, err := stringArg("regex.globs_match", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s2, err := stringArg("regex.globs_match", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	ne, interErr := gintersect.NonEmpty(s1, s2)
	if interErr != nil {
		return value.Value{}, parseErrorf("regex.globs_match", "%s", interErr)
	}
	return value.Bool(ne), nil
}

func builtinGlobMatch(_ *Context, args []value.Value) (value.Value, error) {
	pat, err := stringArg("glob.match", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	var separators []rune
	if args[1].Kind() != value.KindNull {
		delims, delimErr := arrayArg("glob.match", args, 1)
		if delimErr != nil {
			return value.Value{}, delimErr
		}
		for _, d := range delims {
			if d.Kind() != value.KindString || len([]rune(d.Str())) != 1 {
				return value.Value{}, typeErrorf("glob.match", "delimiters must be single-character strings")
			}
			separators = append(separators, []rune(d.Str())[0])
		}
	}
	s, err := stringArg("glob.match", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	g, compErr := getGlob(pat, separators)
	if compErr != nil {
		return value.Value{}, parseErrorf("glob.match", "%s", compErr)
	}
	return value.Bool(g.Match(s)), nil
}

// builtinRegexTemplateMatch matches a template string where delimStart and
// delimEnd mark embedded glob sections, e.g. "urn:foo:{*}".
func builtinRegexTemplateMatch(_ *Context, args []value.Value) (value.Value, error) {
	tmpl, err := stringArg("regex.template_match", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	s, err := stringArg("regex.template_match", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	delimStart, err := stringArg("regex.template_match", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	delimEnd, err := stringArg("regex.template_match", args, 3)
	if err != nil {
		return value.Value{}, err
	}
	pattern, convErr := templateToRegex(tmpl, delimStart, delimEnd)
	if convErr != nil {
		return value.Value{}, parseErrorf("regex.template_match", "%s", convErr)
	}
	re, compErr := getRegexp(pattern)
	if compErr != nil {
		return value.Value{}, parseErrorf("regex.template_match", "%s", compErr)
	}
	return value.Bool(re.MatchString(s)), nil
}

func templateToRegex(tmpl, start, end string) (string, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	rest := tmpl
	for {
		i := strings.Index(rest, start)
		if i < 0 {
			sb.WriteString(regexp.QuoteMeta(rest))
			break
		}
		sb.WriteString(regexp.QuoteMeta(rest[:i]))
		rest = rest[i+len(start):]
		j := strings.Index(rest, end)
		if j < 0 {
			return "", &Error{Code: ParseErr, Name: "regex.template_match", Msg: "unterminated template placeholder"}
		}
		glb := rest[:j]
		rest = rest[j+len(end):]
		sb.WriteString(globToRegexFragment(glb))
	}
	sb.WriteByte('$')
	return sb.String(), nil
}

func globToRegexFragment(pat string) string {
	var sb strings.Builder
	for _, r := range pat {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String()
}
