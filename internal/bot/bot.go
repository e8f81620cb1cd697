package bot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bwmarrin/discordgo"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/cache"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/commands"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/config"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/database"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/repositories"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/persistence"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/resolver"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/session"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/audio"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/downloader"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/fallback"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/search"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/services/spotify"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

// MusicBot wires the Discord gateway to the playback stack
type MusicBot struct {
	config     *config.Config
	logger     *logger.Logger
	dg         *discordgo.Session
	db         *database.DB
	audioSvc   *audio.Service
	sessions   *session.Manager
	keeper     *persistence.Keeper
	cmdHandler *commands.Handler
}

// channelNotifier delivers session lifecycle messages to text channels
type channelNotifier struct {
	dg     *discordgo.Session
	logger *logger.Logger
}

func (n *channelNotifier) Notify(guildID, channelID, message string) {
	if _, err := n.dg.ChannelMessageSend(channelID, message); err != nil {
		n.logger.WithError(err).WithField("guild", guildID).Warn("Failed to send notification")
	}
}

// queueEvents adapts playback lifecycle callbacks onto the session manager
type queueEvents struct {
	sessions *session.Manager
}

func (e *queueEvents) TrackFinished(guildID string)          { e.sessions.HandleTrackFinished(guildID) }
func (e *queueEvents) PlayerError(guildID string, err error) { e.sessions.HandlePlayerError(guildID, err) }

// New creates a MusicBot instance with all services wired
func New(cfg *config.Config, log *logger.Logger) (*MusicBot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
	dg.StateEnabled = true

	// Database is optional; the bot runs without the library and quotes
	var (
		db      *database.DB
		library *repositories.TrackRepository
		quotes  *repositories.QuoteRepository
	)
	if cfg.UseDatabase {
		ctx := context.Background()
		db, err = database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		library = repositories.NewTrackRepository(db, cfg.WebAPIBase)
		quotes = repositories.NewQuoteRepository(db)
	}

	cacheStore, err := cache.NewStore(cfg.CacheDir, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	worker, err := downloader.NewWorker(cfg.YtDlpPath, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to create download worker: %w", err)
	}

	index := fallback.NewYTSearchIndex()
	fallbackSvc := fallback.NewService(cacheStore, worker, index, cfg.DownloadTimeout, log)

	var spotifyLookup search.SpotifyLookup
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		client, err := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, log)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Spotify client - Spotify links will not work")
		} else {
			spotifyLookup = client
			log.Info("Spotify client initialized")
		}
	} else {
		log.Info("Spotify credentials not provided - Spotify links will not work")
	}

	searchSvc := search.NewService(index, worker, spotifyLookup, log)

	encoder := audio.NewEncoder(cfg.YtDlpPath, log)
	audioSvc := audio.NewService(dg, encoder, log)

	notifier := &channelNotifier{dg: dg, logger: log}
	sessions := session.NewManager(func(guildID string) session.VoiceSession {
		return audioSvc.Guild(guildID)
	}, notifier, log)
	audioSvc.SetEvents(&queueEvents{sessions: sessions})

	res := resolver.New(searchSvc, fallbackSvc, resolver.Config{
		StreamEndpoint: cfg.StreamEndpoint,
		StreamMirrors:  cfg.StreamMirrors,
		DownloadDir:    filepath.Join(cfg.CacheDir, "downloads"),
	}, log)

	keeper := persistence.NewKeeper(persistence.NewStore(cfg.SnapshotPath()), sessions, log)

	cmdHandler := commands.NewHandler(dg, sessions, res, keeper, library, quotes, log, cfg)

	b := &MusicBot{
		config:     cfg,
		logger:     log,
		dg:         dg,
		db:         db,
		audioSvc:   audioSvc,
		sessions:   sessions,
		keeper:     keeper,
		cmdHandler: cmdHandler,
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(cmdHandler.HandleInteraction)
	dg.AddHandler(b.onVoiceStateUpdate)

	return b, nil
}

// Start opens the gateway connection, registers commands and launches the
// queue snapshot loop
func (b *MusicBot) Start(ctx context.Context) error {
	b.logger.Info("Opening Discord connection...")
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	b.logger.Info("Registering slash commands...")
	if err := b.cmdHandler.RegisterCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.keeper.Start(b.config.SnapshotInterval)
	return nil
}

// Stop shuts the bot down, writing one final queue snapshot
func (b *MusicBot) Stop() {
	b.logger.Info("Shutting down services...")

	b.keeper.Stop()

	if b.db != nil {
		b.db.Close()
	}

	b.logger.Info("Closing Discord connection...")
	if err := b.dg.Close(); err != nil {
		b.logger.WithError(err).Error("Failed to close Discord session")
	}
}

func (b *MusicBot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Infof("Bot is ready! Logged in as %s#%s", event.User.Username, event.User.Discriminator)
	b.logger.Infof("Connected to %d guilds", len(event.Guilds))

	if err := s.UpdateGameStatus(0, b.config.BotName+" - /help"); err != nil {
		b.logger.WithError(err).Warn("Failed to update status")
	}
}

// voiceConnectionDropped reports whether a voice-state transition is a full
// disconnect, as opposed to a join or a channel move
func voiceConnectionDropped(event *discordgo.VoiceStateUpdate) bool {
	return event.ChannelID == "" && event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != ""
}

// onVoiceStateUpdate watches the bot's own connection dropping and the bot's
// channel emptying out
func (b *MusicBot) onVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.UserID == s.State.User.ID {
		if voiceConnectionDropped(event) {
			b.sessions.HandleConnectionDestroyed(event.GuildID)
		}
		return
	}
	if event.BeforeUpdate == nil {
		// user joined a channel, not left
		return
	}

	guildID := event.GuildID
	botChannelID := b.audioSvc.Guild(guildID).ChannelID()
	if botChannelID == "" || event.BeforeUpdate.ChannelID != botChannelID {
		return
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to get guild state")
		return
	}

	userCount := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != botChannelID || vs.UserID == s.State.User.ID {
			continue
		}
		member, err := s.GuildMember(guildID, vs.UserID)
		if err != nil {
			continue
		}
		if member.User != nil && !member.User.Bot {
			userCount++
		}
	}

	if userCount == 0 {
		b.logger.WithField("guild", guildID).Info("Voice channel is empty")
		b.sessions.HandleEmptyChannel(guildID)
	}
}
