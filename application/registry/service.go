// Package registry builds snippet signatures from videos, keyframe directories and reference images
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"clipwatch/domain/snippet"
	"clipwatch/domain/video"
	"clipwatch/infrastructure/cache"
	"clipwatch/infrastructure/filesystem"
	"clipwatch/infrastructure/imagehash"
	"clipwatch/infrastructure/logging"
)

// ErrNoSnippets is returned by BuildAll when every snippet path failed
var ErrNoSnippets = errors.New("no usable snippets")

// PathInspector abstracts the filesystem queries the registry needs
type PathInspector interface {
	Classify(path string) filesystem.PathKind
	ListImages(dir string) ([]string, error)
}

// Service turns snippet paths into immutable signatures
type Service struct {
	hasher           snippet.Hasher
	extractor        video.KeyframeExtractor
	files            PathInspector
	framesRoot       string
	imageMinDuration float64
	useCache         bool
	log              *logging.Logger
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithFramesRoot stores extracted keyframes under root instead of next to the video
func WithFramesRoot(root string) Option {
	return func(s *Service) {
		s.framesRoot = root
	}
}

// WithImageMinDuration sets the continuous match duration for single-image snippets
func WithImageMinDuration(d float64) Option {
	return func(s *Service) {
		s.imageMinDuration = d
	}
}

// WithoutCache disables the per-directory hash cache
func WithoutCache() Option {
	return func(s *Service) {
		s.useCache = false
	}
}

// WithPathInspector sets a custom filesystem inspector (for testing)
func WithPathInspector(p PathInspector) Option {
	return func(s *Service) {
		s.files = p
	}
}

// WithLogger sets the logger used for skip warnings
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a registry service
func NewService(hasher snippet.Hasher, extractor video.KeyframeExtractor, opts ...Option) *Service {
	s := &Service{
		hasher:           hasher,
		extractor:        extractor,
		files:            filesystem.NewChecker(),
		imageMinDuration: 1.0,
		useCache:         true,
		log:              logging.Named("registry"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Build creates the signature for one snippet path. Videos are extracted into
// their keyframe directory unless it already holds images; directories are
// loaded in natural filename order; images become single-image snippets.
func (s *Service) Build(ctx context.Context, path string) (snippet.Snippet, error) {
	sn, err := s.build(ctx, path)
	if err != nil {
		return snippet.Snippet{}, &snippet.BuildError{Path: path, Err: err}
	}
	return sn.WithSource(path), nil
}

func (s *Service) build(ctx context.Context, path string) (snippet.Snippet, error) {
	name := filepath.Base(filepath.Clean(path))
	method := s.hasher.Method()

	switch kind := s.files.Classify(path); kind {
	case filesystem.KindMissing:
		return snippet.Snippet{}, fmt.Errorf("%w: path does not exist", snippet.ErrExtraction)

	case filesystem.KindImage:
		h, err := imagehash.HashFile(s.hasher, path)
		if err != nil {
			return snippet.Snippet{}, fmt.Errorf("%w: %v", snippet.ErrEmptySignature, err)
		}
		return snippet.NewSingleImage(name, method, h, s.imageMinDuration)

	case filesystem.KindDirectory:
		hashes, err := s.loadDirectory(path)
		if err != nil {
			return snippet.Snippet{}, err
		}
		return snippet.NewSequence(name, method, hashes)

	default:
		dir := filesystem.KeyframeDir(path, s.framesRoot)
		if err := s.ensureKeyframes(ctx, path, dir); err != nil {
			return snippet.Snippet{}, err
		}
		hashes, err := s.loadDirectory(dir)
		if err != nil {
			return snippet.Snippet{}, err
		}
		return snippet.NewSequence(name, method, hashes)
	}
}

// ensureKeyframes extracts videoPath into dir unless dir already holds keyframes
func (s *Service) ensureKeyframes(ctx context.Context, videoPath, dir string) error {
	if existing, err := s.files.ListImages(dir); err == nil && len(existing) > 0 {
		s.log.Debug().Str("dir", dir).Int("keyframes", len(existing)).Msg("reusing extracted keyframes")
		return nil
	}

	n, err := s.extractor.Extract(ctx, videoPath, dir)
	if err != nil {
		if errors.Is(err, snippet.ErrExtraction) {
			return err
		}
		return fmt.Errorf("%w: %v", snippet.ErrExtraction, err)
	}
	s.log.Info().Str("video", videoPath).Str("dir", dir).Int("keyframes", n).Msg("extracted keyframes")
	return nil
}

// Hashes returns the keyframe hashes of dir in signature order
func (s *Service) Hashes(dir string) ([]snippet.Hash, error) {
	return s.loadDirectory(dir)
}

func (s *Service) loadDirectory(dir string) ([]snippet.Hash, error) {
	files, err := s.files.ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", snippet.ErrEmptySignature, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", snippet.ErrEmptySignature, dir)
	}

	var hc *cache.HashCache
	if s.useCache {
		hc, err = cache.Open(dir, s.hasher.Method(), snippet.BackendOf(s.hasher))
		if err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("ignoring hash cache")
		}
	}

	hashes := make([]snippet.Hash, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			s.log.Warn().Err(err).Str("file", file).Msg("skipping keyframe")
			continue
		}

		if hc != nil {
			if h, ok := hc.Get(file, info); ok {
				hashes = append(hashes, h)
				continue
			}
		}

		h, err := imagehash.HashFile(s.hasher, file)
		if err != nil {
			s.log.Warn().Err(err).Str("file", file).Msg("skipping undecodable keyframe")
			continue
		}
		hashes = append(hashes, h)
		if hc != nil {
			hc.Put(file, info, h)
		}
	}

	if hc != nil {
		if err := hc.Save(); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("failed to save hash cache")
		}
	}

	if len(hashes) == 0 {
		return nil, fmt.Errorf("%w: no decodable images in %s", snippet.ErrEmptySignature, dir)
	}
	return hashes, nil
}

// BuildAll builds every path, skipping failures with a warning. It fails only
// when no snippet could be built. Snippets whose base names collide are
// renamed to their cleaned path.
func (s *Service) BuildAll(ctx context.Context, paths []string) ([]snippet.Snippet, error) {
	var (
		built    []snippet.Snippet
		failures []error
		names    = make(map[string]bool)
	)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sn, err := s.Build(ctx, path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping snippet")
			failures = append(failures, err)
			continue
		}

		if names[sn.Name] {
			sn.Name = filepath.Clean(path)
		}
		names[sn.Name] = true

		s.log.Info().
			Str("clip", sn.Name).
			Str("kind", string(sn.Kind)).
			Int("keyframes", sn.Len()).
			Msg("registered snippet")
		built = append(built, sn)
	}

	if len(built) == 0 {
		return nil, errors.Join(append([]error{ErrNoSnippets}, failures...)...)
	}
	return built, nil
}
