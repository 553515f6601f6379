package storage

const schema = `
-- A deck is a named collection of cards owned by one user.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    card_count INTEGER NOT NULL DEFAULT 0, -- advisory, refreshed on insert
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS decks_user_id ON decks(user_id);

-- The 'cards' table stores each flashcard and its SM-2 state.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review DATETIME NOT NULL,
    last_review DATETIME,
    total_reviews INTEGER NOT NULL DEFAULT 0,
    correct_reviews INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    streak INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    version INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);

CREATE INDEX IF NOT EXISTS cards_deck_id ON cards(deck_id);

-- One row of running totals per user. level is written from total_xp on
-- every save and never updated on its own.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id INTEGER PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_date TEXT, -- YYYY-MM-DD
    pomodoros_completed INTEGER NOT NULL DEFAULT 0,
    quizzes_completed INTEGER NOT NULL DEFAULT 0,
    flashcards_reviewed INTEGER NOT NULL DEFAULT 0,
    checklist_items_done INTEGER NOT NULL DEFAULT 0,
    study_minutes INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Badges unlocked per user. Rows are only ever inserted, in the same
-- transaction as the progress save that unlocked them.
CREATE TABLE IF NOT EXISTS user_badges (
    user_id INTEGER NOT NULL,
    badge_id TEXT NOT NULL,
    unlocked_at DATETIME NOT NULL,

    PRIMARY KEY (user_id, badge_id)
);

-- Append-only log of XP grants. seq orders entries by insertion.
CREATE TABLE IF NOT EXISTS activity_log (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    user_id INTEGER NOT NULL,
    action TEXT NOT NULL,
    xp INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS activity_log_user_seq ON activity_log(user_id, seq);
`
