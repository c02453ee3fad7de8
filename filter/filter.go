package filter

import (
	"log/slog"
	"regexp"
	"unicode"

	"github.com/scipunch/ytrelay/config"
	"github.com/scipunch/ytrelay/fetcher/types"
)

// FilterPipeline applies a series of named filters to posts
type FilterPipeline struct {
	filters map[string]*CompiledFilter
	names   []string
}

// CompiledFilter contains compiled regex patterns for efficient matching
type CompiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// NewFilterPipeline creates a pipeline applying filterNames, in order, out of filtersConfig
func NewFilterPipeline(filtersConfig map[string]config.Filter, filterNames []string) (*FilterPipeline, error) {
	compiled := make(map[string]*CompiledFilter)

	for name, filterCfg := range filtersConfig {
		cf := &CompiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		// Compile regex patterns
		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid regex pattern in filter", "filter", name, "pattern", pattern, "error", err)
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}

		compiled[name] = cf
	}

	return &FilterPipeline{filters: compiled, names: filterNames}, nil
}

// ShouldInclude returns true if the post passes all filters in the pipeline,
// otherwise the reason it was rejected
func (fp *FilterPipeline) ShouldInclude(post types.Post) (bool, string) {
	if len(fp.names) == 0 {
		return true, "" // No filters = include everything
	}

	for _, filterName := range fp.names {
		filter, exists := fp.filters[filterName]
		if !exists {
			slog.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if shouldInclude, reason := fp.applyFilter(post, filter, filterName); !shouldInclude {
			return false, reason
		}
	}

	return true, ""
}

// applyFilter applies a single filter to a post
func (fp *FilterPipeline) applyFilter(post types.Post, filter *CompiledFilter, filterName string) (bool, string) {
	text := post.Text

	// 1. Check minimum length
	if filter.config.MinLength > 0 && len([]rune(text)) < filter.config.MinLength {
		return false, filterName + ":min_length"
	}

	// 2. Check minimum word count
	if filter.config.MinWords > 0 {
		wordCount := countWords(text)
		if wordCount < filter.config.MinWords {
			return false, filterName + ":min_words"
		}
	}

	// 3. Check exclude patterns
	for _, pattern := range filter.excludePatterns {
		if pattern.MatchString(text) {
			return false, filterName + ":exclude_pattern[" + pattern.String() + "]"
		}
	}

	// 4. Check attachment requirement
	if filter.config.RequireImages && !post.HasImages() {
		return false, filterName + ":require_images"
	}

	return true, ""
}

// countWords counts the number of words in text
func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}
