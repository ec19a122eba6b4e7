package store

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    post_id          TEXT PRIMARY KEY,
    text             TEXT NOT NULL DEFAULT '',
    author_id        TEXT NOT NULL DEFAULT '',
    author_followers INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    collected_at     DATETIME NOT NULL,
    search_query     TEXT NOT NULL DEFAULT '',
    lang             TEXT NOT NULL DEFAULT '',
    conversation_id  TEXT NOT NULL DEFAULT '',
    like_count       INTEGER NOT NULL DEFAULT 0,
    retweet_count    INTEGER NOT NULL DEFAULT 0,
    reply_count      INTEGER NOT NULL DEFAULT 0,
    quote_count      INTEGER NOT NULL DEFAULT 0,
    is_reply         BOOLEAN NOT NULL DEFAULT 0,
    is_quote         BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
CREATE INDEX IF NOT EXISTS idx_posts_collected_at ON posts(collected_at);

CREATE TABLE IF NOT EXISTS topic_mentions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_name   TEXT NOT NULL,
    category     TEXT NOT NULL,
    mentioned_at DATETIME NOT NULL,
    post_id      TEXT NOT NULL,
    confidence   REAL NOT NULL DEFAULT 1.0,
    source       TEXT NOT NULL DEFAULT 'twitter'
);

CREATE INDEX IF NOT EXISTS idx_mentions_post ON topic_mentions(post_id);
CREATE INDEX IF NOT EXISTS idx_mentions_topic ON topic_mentions(topic_name);
CREATE INDEX IF NOT EXISTS idx_mentions_at ON topic_mentions(mentioned_at);

CREATE TABLE IF NOT EXISTS api_usage (
    query_date   TEXT PRIMARY KEY,
    posts_pulled INTEGER NOT NULL DEFAULT 0,
    query_used   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trend_daily (
    topic_name    TEXT NOT NULL,
    category      TEXT NOT NULL,
    day           TEXT NOT NULL,
    mention_count INTEGER NOT NULL DEFAULT 0,
    growth_rate   REAL NOT NULL DEFAULT 0,
    computed_at   DATETIME NOT NULL,
    PRIMARY KEY (topic_name, category, day)
);

CREATE INDEX IF NOT EXISTS idx_trend_daily_day ON trend_daily(day);

CREATE TABLE IF NOT EXISTS trend_hourly (
    topic_name  TEXT NOT NULL,
    category    TEXT NOT NULL,
    bucket_ts   DATETIME NOT NULL,
    mentions    INTEGER NOT NULL DEFAULT 0,
    weighted    INTEGER NOT NULL DEFAULT 0,
    computed_at DATETIME NOT NULL,
    PRIMARY KEY (topic_name, category, bucket_ts)
);

CREATE INDEX IF NOT EXISTS idx_trend_hourly_ts ON trend_hourly(bucket_ts);
`
