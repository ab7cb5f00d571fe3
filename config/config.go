package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"skillscan/internal/appdirs"
	"skillscan/log"
)

type App struct {
	KeepFrames  bool     `toml:"keep_frames"`
	OnlyNew     bool     `toml:"only_new"`
	Proxy       string   `toml:"proxy"`
	ParsedProxy *url.URL `toml:"-"`
}

type Interval struct {
	FFmpegPath  string  `toml:"ffmpeg_path"`
	Noise       float64 `toml:"noise"`
	MinDuration float64 `toml:"min_duration"`
}

// Crop is a rectangle as fractions of the frame width/height.
type Crop struct {
	Left   float64 `toml:"left"`
	Top    float64 `toml:"top"`
	Right  float64 `toml:"right"`
	Bottom float64 `toml:"bottom"`
}

type Crops struct {
	Panel       Crop `toml:"panel"`
	Name        Crop `toml:"name"`
	Description Crop `toml:"description"`
}

type Classifier struct {
	BrightPixelThreshold float64 `toml:"bright_pixel_threshold"`
	MinBrightRatio       float64 `toml:"min_bright_ratio"`
	RowGradientThreshold float64 `toml:"row_gradient_threshold"`
	MinGapBetweenEdges   int     `toml:"min_gap_between_edges"`
	MinHorizontalLines   int     `toml:"min_horizontal_lines"`
}

type Dedup struct {
	HashThreshold       int `toml:"hash_threshold"`
	ScrollNameThreshold int `toml:"scroll_name_threshold"`
	ScrollDescThreshold int `toml:"scroll_desc_threshold"`
}

type Frames struct {
	Crop       Crops      `toml:"crop"`
	Classifier Classifier `toml:"classifier"`
	Dedup      Dedup      `toml:"dedup"`
}

type OpenAI struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type Ollama struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	NumCtx  int    `toml:"num_ctx"`
}

type Recognition struct {
	Provider           string  `toml:"provider"`
	PromptProfile      string  `toml:"prompt_profile"`
	Normalize          string  `toml:"normalize"`
	MaxRetries         int     `toml:"max_retries"`
	BackoffSeconds     float64 `toml:"backoff_seconds"`
	CallTimeoutSeconds int     `toml:"call_timeout_seconds"`
	Concurrency        int     `toml:"concurrency"`
	RequestsPerMinute  int     `toml:"requests_per_minute"`
	OpenAI             OpenAI  `toml:"openai"`
	Gemini             Gemini  `toml:"gemini"`
	Ollama             Ollama  `toml:"ollama"`
}

type Hint struct {
	Engine        string `toml:"engine"`
	TesseractPath string `toml:"tesseract_path"`
}

type Matcher struct {
	SnapMaxRatio       float64 `toml:"snap_max_ratio"`
	PositionalFallback bool    `toml:"positional_fallback"`
}

type Storage struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

type Server struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	QueueSize   int    `toml:"queue_size"`
	Concurrency int    `toml:"concurrency"`
}

type Config struct {
	App         App         `toml:"app"`
	Interval    Interval    `toml:"interval"`
	Frames      Frames      `toml:"frames"`
	Recognition Recognition `toml:"recognition"`
	Hint        Hint        `toml:"hint"`
	Matcher     Matcher     `toml:"matcher"`
	Storage     Storage     `toml:"storage"`
	Server      Server      `toml:"server"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	PromptProfileFull    = "full"
	PromptProfileCompact = "compact"

	NormalizeNone = "none"
	NormalizeNFKC = "nfkc"

	HintEngineNone      = "none"
	HintEngineAuto      = "auto"
	HintEngineTesseract = "tesseract"
)

var Conf = defaultConfig()

var resolveConfigPath = ResolveConfigPath

func defaultConfig() Config {
	return Config{
		App: App{
			OnlyNew: true,
		},
		Interval: Interval{
			FFmpegPath:  "ffmpeg",
			Noise:       0.003,
			MinDuration: 1.5,
		},
		Frames: Frames{
			Crop: Crops{
				Panel:       Crop{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.95},
				Name:        Crop{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.20},
				Description: Crop{Left: 0.45, Top: 0.20, Right: 0.98, Bottom: 0.95},
			},
			Classifier: Classifier{
				BrightPixelThreshold: 200,
				MinBrightRatio:       0.08,
				RowGradientThreshold: 15,
				MinGapBetweenEdges:   10,
				MinHorizontalLines:   7,
			},
			Dedup: Dedup{
				HashThreshold:       8,
				ScrollNameThreshold: 5,
				ScrollDescThreshold: 10,
			},
		},
		Recognition: Recognition{
			Provider:           ProviderOpenAI,
			PromptProfile:      PromptProfileFull,
			Normalize:          NormalizeNone,
			MaxRetries:         3,
			BackoffSeconds:     1,
			CallTimeoutSeconds: 120,
			Concurrency:        1,
			OpenAI: OpenAI{
				Model:     "gpt-4o",
				MaxTokens: 4096,
			},
			Gemini: Gemini{
				Model: "gemini-1.5-pro",
			},
			Ollama: Ollama{
				BaseURL: "http://localhost:11434",
				Model:   "qwen2.5vl:7b",
				NumCtx:  8192,
			},
		},
		Hint: Hint{
			Engine:        HintEngineNone,
			TesseractPath: "tesseract",
		},
		Matcher: Matcher{
			SnapMaxRatio:       0.25,
			PositionalFallback: true,
		},
		Storage: Storage{
			Enabled: true,
		},
		Server: Server{
			Host:        "127.0.0.1",
			Port:        8888,
			QueueSize:   32,
			Concurrency: 1,
		},
	}
}

func ResolveConfigPath() (string, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// LoadConfig reads the config file into Conf. A missing file keeps defaults.
func LoadConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	conf := defaultConfig()
	if _, err = os.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.GetLogger().Info("config file not found, using defaults", zap.String("path", configPath))
			Conf = conf
			applyEnv(&Conf)
			return nil
		}
		return err
	}

	if _, err = toml.DecodeFile(configPath, &conf); err != nil {
		return fmt.Errorf("decode config %s: %w", configPath, err)
	}
	Conf = conf
	applyEnv(&Conf)
	log.GetLogger().Info("config loaded", zap.String("path", configPath))
	return nil
}

// LoadOrCreateConfig loads the config file, writing the defaults first when
// it does not exist. created reports whether a new file was written.
func LoadOrCreateConfig() (created bool, err error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	if _, statErr := os.Stat(configPath); errors.Is(statErr, os.ErrNotExist) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		created = true
	}

	if err = LoadConfig(); err != nil {
		return created, err
	}
	return created, nil
}

func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(Conf)
}

func applyEnv(conf *Config) {
	if conf.Recognition.OpenAI.APIKey == "" {
		conf.Recognition.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if conf.Recognition.OpenAI.BaseURL == "" {
		conf.Recognition.OpenAI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if conf.Recognition.Gemini.APIKey == "" {
		conf.Recognition.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" && conf.Recognition.Ollama.BaseURL == defaultConfig().Recognition.Ollama.BaseURL {
		conf.Recognition.Ollama.BaseURL = host
	}
}

// CheckConfig validates Conf and fills derived fields.
func CheckConfig() error {
	Conf.Recognition.Provider = strings.ToLower(strings.TrimSpace(Conf.Recognition.Provider))
	switch Conf.Recognition.Provider {
	case ProviderOpenAI:
		if Conf.Recognition.OpenAI.APIKey == "" && Conf.Recognition.OpenAI.BaseURL == "" {
			return errors.New("recognition.openai.api_key is required (or set OPENAI_API_KEY)")
		}
	case ProviderGemini:
		if Conf.Recognition.Gemini.APIKey == "" {
			return errors.New("recognition.gemini.api_key is required (or set GEMINI_API_KEY)")
		}
	case ProviderOllama:
		if Conf.Recognition.Ollama.BaseURL == "" {
			return errors.New("recognition.ollama.base_url is required")
		}
	default:
		return fmt.Errorf("unsupported recognition provider: %q", Conf.Recognition.Provider)
	}

	switch Conf.Recognition.PromptProfile {
	case "", PromptProfileFull, PromptProfileCompact:
	default:
		return fmt.Errorf("unsupported prompt profile: %q", Conf.Recognition.PromptProfile)
	}

	switch Conf.Recognition.Normalize {
	case "", NormalizeNone, NormalizeNFKC:
	default:
		return fmt.Errorf("unsupported normalize mode: %q", Conf.Recognition.Normalize)
	}

	switch Conf.Hint.Engine {
	case "", HintEngineNone, HintEngineAuto, HintEngineTesseract:
	default:
		return fmt.Errorf("unsupported hint engine: %q", Conf.Hint.Engine)
	}

	if Conf.Recognition.MaxRetries < 1 {
		return errors.New("recognition.max_retries must be at least 1")
	}

	for name, crop := range map[string]Crop{
		"panel":       Conf.Frames.Crop.Panel,
		"name":        Conf.Frames.Crop.Name,
		"description": Conf.Frames.Crop.Description,
	} {
		if err := crop.Validate(); err != nil {
			return fmt.Errorf("frames.crop.%s: %w", name, err)
		}
	}

	if Conf.Frames.Classifier.MinBrightRatio < 0 || Conf.Frames.Classifier.MinBrightRatio > 1 {
		return errors.New("frames.classifier.min_bright_ratio must be within [0, 1]")
	}

	Conf.App.ParsedProxy = nil
	if Conf.App.Proxy != "" {
		proxy, err := url.Parse(Conf.App.Proxy)
		if err != nil {
			return fmt.Errorf("app.proxy: %w", err)
		}
		Conf.App.ParsedProxy = proxy
	}
	return nil
}

func (c Crop) Validate() error {
	if c.Left < 0 || c.Top < 0 || c.Right > 1 || c.Bottom > 1 {
		return errors.New("ratios must be within [0, 1]")
	}
	if c.Left >= c.Right || c.Top >= c.Bottom {
		return errors.New("rectangle is empty")
	}
	return nil
}
