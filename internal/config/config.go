package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"TrainAnnouncer/internal/service/announcement"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"` //Режим дебага
	RoutePath string `env:"ROUTE_PATH"` // Файл маршрута, загружаемый при старте (опционально)

	// Общий переключатель сервиса TTS и конфиги провайдеров
	TTSService string          `env:"TTS_SERVICE"` // google|yandex|gemini|console, по умолчанию google
	GoogleTTS  GoogleTTSConfig // Конфигурация Google Cloud TTS
	YandexTTS  YandexTTSConfig // Конфигурация TTS (Yandex SpeechKit)
	GeminiTTS  GeminiTTSConfig // Конфигурация Gemini-TTS (Cloud TTS v1beta1)

	Speech    SpeechConfig
	Hotkeys   HotkeysConfig
	WebServer WebServerConfig
	Twitch    TwitchConfig

	// Тексты объявлений; пустые шаблоны заменяются стандартными
	Messages announcement.Templates
}

// YandexTTSConfig конфигурация для синтеза речи через Yandex SpeechKit.
type YandexTTSConfig struct {
	APIKey  string `env:"YC_TTS_API_KEY"` // Ключ берём из .env/ENV. Если пуст: при использовании будет ошибка
	Voice   string `env:"YC_TTS_VOICE"`   // Голос, по умолчанию filipp
	Format  string `env:"YC_TTS_FORMAT"`  // mp3|wav, по умолчанию mp3
	Speed   string `env:"YC_TTS_SPEED"`   // Скорость синтеза (1.0 по умолчанию в API)
	Emotion string `env:"YC_TTS_EMOTION"` // Эмоциональная окраска: neutral|good|evil
	Volume  int    `env:"YC_TTS_VOLUME"`  // Громкость 0-100; 100: не изменять громкость
}

// GoogleTTSConfig конфигурация для синтеза речи через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	// Путь к файлу ключа сервисного аккаунта. Фактически читается из ENV GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch           float64 `env:"GOOGLE_TTS_PITCH"`
	VolumeGainDb    float64 `env:"GOOGLE_TTS_VOLUME_DB"`
	// Эффект профиля устройства воспроизведения, напр. large-home-entertainment-class-device
	EffectsProfileID string `env:"GOOGLE_TTS_EFFECTS_PROFILE_ID"`
	// Тип входа: text|ssml. Пусто = auto (по наличию тега <speak> в тексте).
	InputType string `env:"GOOGLE_TTS_INPUT_TYPE"`
}

// GeminiTTSConfig конфигурация Gemini-TTS. Авторизация только через ADC.
type GeminiTTSConfig struct {
	Endpoint         string  `env:"GEMINI_TTS_ENDPOINT"` // Пусто: v1beta1 text:synthesize
	ModelName        string  `env:"GEMINI_TTS_MODEL"`
	Language         string  `env:"GEMINI_TTS_LANGUAGE"`
	VoiceName        string  `env:"GEMINI_TTS_VOICE"`
	Prompt           string  `env:"GEMINI_TTS_PROMPT"` // Стилевой промпт, напр. «спокойный голос диктора вокзала»
	InputType        string  `env:"GEMINI_TTS_INPUT_TYPE"`
	SpeakingRate     float64 `env:"GEMINI_TTS_SPEAKING_RATE"`
	Pitch            float64 `env:"GEMINI_TTS_PITCH"`
	VolumeGainDb     float64 `env:"GEMINI_TTS_VOLUME_DB"`
	EffectsProfileID string  `env:"GEMINI_TTS_EFFECTS_PROFILE_ID"`
}

// SpeechConfig настройки воркера озвучки.
type SpeechConfig struct {
	Policy       string        `env:"SPEECH_POLICY"`       // preempt|queue
	StopTimeout  time.Duration `env:"SPEECH_STOP_TIMEOUT"` // Сколько ждать дозвучивания при остановке
	ChimeEnabled bool          `env:"CHIME_ENABLED"`       // Сигнал перед каждым объявлением
	ChimePath    string        `env:"CHIME_SOUND_PATH"`    // mp3 или wav
}

// HotkeysConfig глобальные сочетания клавиш. Пустое значение: хоткей не назначен.
type HotkeysConfig struct {
	Next   string `env:"HOTKEY_NEXT"`
	Repeat string `env:"HOTKEY_REPEAT"`
}

// WebServerConfig HTTP API и websocket.
type WebServerConfig struct {
	Enabled            bool     `env:"WEB_SERVER_ENABLED"`
	BindAddr           string   `env:"WEB_SERVER_BIND_ADDR"`
	APIKey             string   `env:"WEB_SERVER_API_KEY"`                               // Пусто: без авторизации
	CorsAllowedOrigins []string `env:"WEB_SERVER_CORS_ALLOWED_ORIGINS" envSeparator:","` // Источники для CORS
}

// TwitchConfig команды из чата Twitch.
type TwitchConfig struct {
	Enabled      bool     `env:"TWITCH_ENABLED"`
	Username     string   `env:"TWITCH_USERNAME"`    // Имя пользователя Twitch (логин)
	OAuthToken   string   `env:"TWITCH_OAUTH_TOKEN"` // OAuth токен Twitch (может быть без префикса oauth:)
	Channel      string   `env:"TWITCH_CHANNEL"`     // Канал Twitch (один), без #
	AllowedUsers []string `env:"TWITCH_ALLOWED_USERS" envSeparator:";"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:  false,
		TTSService: "google",
		GoogleTTS: GoogleTTSConfig{
			CredentialsPath:  "service-account.json",
			Language:         "en-GB",
			Voice:            "en-GB-Standard-B",
			SpeakingRate:     1.0,
			EffectsProfileID: "large-home-entertainment-class-device",
		},
		YandexTTS: YandexTTSConfig{
			Voice:   "john",
			Format:  "mp3", // проигрывание поддерживается для mp3 и wav
			Speed:   "1.0",
			Emotion: "neutral",
			Volume:  100,
		},
		GeminiTTS: GeminiTTSConfig{
			ModelName:    "gemini-2.5-flash-tts",
			Language:     "en-GB",
			VoiceName:    "Charon",
			Prompt:       "Read as a calm railway station announcer.",
			SpeakingRate: 1.0,
		},
		Speech: SpeechConfig{
			Policy:      "preempt",
			StopTimeout: 2 * time.Second,
			ChimePath:   "sound/chime.mp3",
		},
		Hotkeys: HotkeysConfig{
			Next:   "ctrl+alt+n",
			Repeat: "ctrl+alt+r",
		},
		WebServer: WebServerConfig{
			Enabled:  false,
			BindAddr: "127.0.0.1:8080",
		},
		Messages: announcement.DefaultTemplates(),
	}
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги args.
func Load(args []string) (*Config, error) {
	return LoadWithFlags(args, nil)
}

// LoadWithFlags как Load, но даёт утилите объявить свои флаги в том же наборе.
func LoadWithFlags(args []string, extra func(fs *flag.FlagSet)) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	fs := flag.NewFlagSet("announcer", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.RoutePath, "route", cfg.RoutePath, "файл маршрута (по станции на строку)")
	fs.StringVar(&cfg.TTSService, "tts-service", cfg.TTSService, "выбор сервиса TTS: google|yandex|gemini|console")
	// Параметры Google TTS
	fs.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	fs.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "язык синтеза, напр. en-GB")
	fs.StringVar(&cfg.GoogleTTS.Voice, "google-tts-voice", cfg.GoogleTTS.Voice, "имя голоса, напр. en-GB-Standard-B")
	fs.Float64Var(&cfg.GoogleTTS.SpeakingRate, "google-tts-speaking-rate", cfg.GoogleTTS.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	fs.Float64Var(&cfg.GoogleTTS.Pitch, "google-tts-pitch", cfg.GoogleTTS.Pitch, "тон (полутоны), может быть отрицательным")
	fs.Float64Var(&cfg.GoogleTTS.VolumeGainDb, "google-tts-volume-db", cfg.GoogleTTS.VolumeGainDb, "усиление громкости (дБ), от -96.0 до +16.0")
	fs.StringVar(&cfg.GoogleTTS.EffectsProfileID, "google-tts-effects-profile-id", cfg.GoogleTTS.EffectsProfileID, "EffectsProfileId")
	fs.StringVar(&cfg.GoogleTTS.InputType, "google-tts-input-type", cfg.GoogleTTS.InputType, "тип входа: text|ssml; пусто = авто по наличию <speak>")
	// Параметры Yandex TTS
	fs.StringVar(&cfg.YandexTTS.APIKey, "yc-tts-api-key", cfg.YandexTTS.APIKey, "API ключ Yandex SpeechKit TTS (перекрывает ENV)")
	fs.StringVar(&cfg.YandexTTS.Voice, "yc-tts-voice", cfg.YandexTTS.Voice, "голос для синтеза")
	fs.StringVar(&cfg.YandexTTS.Format, "yc-tts-format", cfg.YandexTTS.Format, "формат аудио (mp3|wav)")
	fs.StringVar(&cfg.YandexTTS.Speed, "yc-tts-speed", cfg.YandexTTS.Speed, "скорость речи")
	fs.StringVar(&cfg.YandexTTS.Emotion, "yc-tts-emotion", cfg.YandexTTS.Emotion, "эмоциональная окраска (neutral|good|evil)")
	fs.IntVar(&cfg.YandexTTS.Volume, "yc-tts-volume", cfg.YandexTTS.Volume, "громкость 0-100 (100: без изменений)")
	// Параметры Gemini TTS
	fs.StringVar(&cfg.GeminiTTS.ModelName, "gemini-tts-model", cfg.GeminiTTS.ModelName, "модель Gemini-TTS")
	fs.StringVar(&cfg.GeminiTTS.VoiceName, "gemini-tts-voice", cfg.GeminiTTS.VoiceName, "голос Gemini-TTS")
	fs.StringVar(&cfg.GeminiTTS.Prompt, "gemini-tts-prompt", cfg.GeminiTTS.Prompt, "стилевой промпт для Gemini-TTS")
	// Speech
	fs.StringVar(&cfg.Speech.Policy, "speech-policy", cfg.Speech.Policy, "политика наложения фраз: preempt|queue")
	fs.DurationVar(&cfg.Speech.StopTimeout, "speech-stop-timeout", cfg.Speech.StopTimeout, "ожидание остановки воркера озвучки, напр. 2s")
	fs.BoolVar(&cfg.Speech.ChimeEnabled, "chime-enabled", cfg.Speech.ChimeEnabled, "сигнал перед каждым объявлением")
	fs.StringVar(&cfg.Speech.ChimePath, "chime-sound-path", cfg.Speech.ChimePath, "путь к звуку сигнала (mp3 или wav)")
	// Хоткеи
	fs.StringVar(&cfg.Hotkeys.Next, "hotkey-next", cfg.Hotkeys.Next, "сочетание для следующего объявления; пусто = не назначать")
	fs.StringVar(&cfg.Hotkeys.Repeat, "hotkey-repeat", cfg.Hotkeys.Repeat, "сочетание для повтора; пусто = не назначать")
	// Web
	fs.BoolVar(&cfg.WebServer.Enabled, "web-enabled", cfg.WebServer.Enabled, "включить HTTP API")
	fs.StringVar(&cfg.WebServer.BindAddr, "web-bind-addr", cfg.WebServer.BindAddr, "адрес HTTP API (напр. 127.0.0.1:8080)")
	fs.StringVar(&cfg.WebServer.APIKey, "web-api-key", cfg.WebServer.APIKey, "API ключ для /api (опционально)")
	corsFlag := strings.Join(cfg.WebServer.CorsAllowedOrigins, ",")
	fs.StringVar(&corsFlag, "web-cors-origins", corsFlag, "разрешённые источники CORS через ','")
	// Chat/Twitch
	fs.BoolVar(&cfg.Twitch.Enabled, "twitch-enabled", cfg.Twitch.Enabled, "принимать команды из чата Twitch")
	fs.StringVar(&cfg.Twitch.Username, "twitch-username", cfg.Twitch.Username, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.Twitch.OAuthToken, "twitch-oauth-token", cfg.Twitch.OAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.Twitch.Channel, "twitch-channel", cfg.Twitch.Channel, "канал Twitch (без #)")
	allowedFlag := strings.Join(cfg.Twitch.AllowedUsers, ";")
	fs.StringVar(&allowedFlag, "twitch-allowed-users", allowedFlag, "кому кроме стримера и модераторов разрешены команды, через ';'")
	if extra != nil {
		extra(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}

	cfg.WebServer.CorsAllowedOrigins = parseListFlag(corsFlag, ",", nil)
	cfg.Twitch.AllowedUsers = parseListFlag(allowedFlag, ";", nil)
	cfg.Messages = cfg.Messages.WithDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfig загружает конфигурацию приложения из os.Args; ошибка конфигурации фатальна.
func NewConfig() *Config {
	return NewConfigWithFlags(nil)
}

// NewConfigWithFlags: NewConfig с дополнительными флагами утилиты.
func NewConfigWithFlags(extra func(fs *flag.FlagSet)) *Config {
	cfg, err := LoadWithFlags(os.Args[1:], extra)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	c.TTSService = strings.ToLower(strings.TrimSpace(c.TTSService))
	switch c.TTSService {
	case "google", "gemini":
		// Если ENV пуст, но в конфиге указан путь: устанавливаем ENV для ADC.
		cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if cred == "" {
			if cp := strings.TrimSpace(c.GoogleTTS.CredentialsPath); cp != "" {
				_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
				cred = cp
			}
		}
		if cred == "" {
			return fmt.Errorf("%s tts: переменная окружения GOOGLE_APPLICATION_CREDENTIALS не задана; укажите ENV или флаг -google-tts-credentials", c.TTSService)
		}
		if _, err := os.Stat(cred); err != nil {
			return fmt.Errorf("%s tts: файл ключа не найден: %s", c.TTSService, cred)
		}
	case "yandex":
		if strings.TrimSpace(c.YandexTTS.APIKey) == "" {
			return fmt.Errorf("yandex tts: не задан YC_TTS_API_KEY")
		}
	case "console":
	default:
		return fmt.Errorf("config: неизвестный TTS_SERVICE %q (google|yandex|gemini|console)", c.TTSService)
	}

	switch c.Speech.Policy {
	case "", "preempt", "queue":
	default:
		return fmt.Errorf("config: неизвестная SPEECH_POLICY %q (preempt|queue)", c.Speech.Policy)
	}
	if c.Speech.StopTimeout <= 0 {
		return fmt.Errorf("config: SPEECH_STOP_TIMEOUT должен быть > 0, получено %s", c.Speech.StopTimeout)
	}
	if err := c.Messages.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Twitch.Enabled && (c.Twitch.Channel == "" || c.Twitch.Username == "" || c.Twitch.OAuthToken == "") {
		return fmt.Errorf("config: для Twitch нужны TWITCH_USERNAME, TWITCH_OAUTH_TOKEN и TWITCH_CHANNEL")
	}
	return nil
}

// parseListFlag разбирает значение флага со списком через sep
func parseListFlag(v, sep string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, sep)
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
