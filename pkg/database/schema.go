package database

// sqliteSchema 本地开发与测试使用的表结构，与 scripts/init_db.sql 保持一致
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS spaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	capacity INTEGER NOT NULL DEFAULT 0,
	hourly_rate INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	space_id TEXT NOT NULL REFERENCES spaces(id),
	user_id TEXT NOT NULL,
	reservation_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	total_amount INTEGER NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('confirmed', 'cancelled')),
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reservations_space_date ON reservations(space_id, reservation_date);

CREATE TABLE IF NOT EXISTS teams (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	leader_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'disbanded')),
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS team_members (
	id TEXT PRIMARY KEY,
	team_id TEXT NOT NULL REFERENCES teams(id),
	user_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('leader', 'member')),
	status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'declined')),
	invited_at TIMESTAMP NOT NULL,
	confirmed_at TIMESTAMP,
	UNIQUE (team_id, user_id)
);

CREATE TABLE IF NOT EXISTS team_invitations (
	id TEXT PRIMARY KEY,
	team_id TEXT NOT NULL REFERENCES teams(id),
	inviter_id TEXT NOT NULL,
	invitee_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined')),
	created_at TIMESTAMP NOT NULL,
	responded_at TIMESTAMP,
	UNIQUE (team_id, invitee_id)
);

CREATE TABLE IF NOT EXISTS team_meetings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	meeting_date TEXT NOT NULL,
	meeting_time TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	organizer_id TEXT NOT NULL,
	meeting_type TEXT NOT NULL CHECK (meeting_type IN ('team_vs_team', 'team_vs_individuals')),
	team1_id TEXT REFERENCES teams(id),
	team2_id TEXT REFERENCES teams(id),
	status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS community_groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	creator_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS group_memberships (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES community_groups(id),
	user_id TEXT NOT NULL,
	joined_at TIMESTAMP NOT NULL,
	UNIQUE (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS likes (
	post_id TEXT NOT NULL REFERENCES posts(id),
	user_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts(id),
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS follows (
	follower_id TEXT NOT NULL,
	following_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (follower_id, following_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	sender_id TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	content TEXT NOT NULL,
	is_read BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
`
