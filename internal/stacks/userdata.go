package stacks

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// SampleDAG is the one-task workflow definition seeded into the
// scheduler's dags/ prefix so a fresh deployment has something to run.
const SampleDAG = `from airflow import DAG
from airflow.operators.empty import EmptyOperator
from datetime import datetime

with DAG(
    dag_id="sample_s3_dag",
    start_date=datetime(2024, 1, 1),
    schedule_interval=None,
    catchup=False,
) as dag:
    EmptyOperator(task_id="hello_airflow")
`

// flaskApp is the web service source installed by the webservice user
// data. It serves fixed records under /test_data?data_id=N.
const flaskApp = `from flask import Flask, jsonify, request

app = Flask(__name__)


@app.get("/")
def hello():
    return {"message": "Hello from Flask on EC2!"}


@app.get("/test_data")
def test_data():
    data_id = request.args.get("data_id")
    if data_id == "1":
        payload = {
            "id": "1",
            "name": "Alice Example",
            "address": "123 Cloud Lane, Internet City",
        }
    elif data_id == "2":
        payload = {
            "id": "2",
            "name": "Bob Sample",
            "address": "987 Server Way, Compute Town",
        }
    else:
        payload = {"error": "Unknown data_id", "data_id": data_id}
        return jsonify(payload), 404
    return jsonify(payload)
`

// schedulerUserData installs the scheduler into a virtualenv, stages a
// script that syncs workflow definitions from the bucket, and runs the
// whole thing under systemd.
var schedulerUserData = template.Must(template.New("scheduler").Parse(`#!/bin/bash
set -xeuo pipefail

apt-get update -y
apt-get install -y python3 python3-venv python3-pip awscli

useradd -m airflow || true
install -d -o airflow -g airflow /opt/airflow
sudo -u airflow python3 -m venv /opt/airflow/venv
sudo -u airflow /opt/airflow/venv/bin/pip install --upgrade pip
sudo -u airflow /opt/airflow/venv/bin/pip install 'apache-airflow==2.8.1'

cat <<'EOF' >/opt/airflow/sync_dags.sh
#!/bin/bash
export AIRFLOW_HOME=/opt/airflow
aws s3 sync s3://{{.Bucket}}/dags $AIRFLOW_HOME/dags
EOF
chown airflow:airflow /opt/airflow/sync_dags.sh
chmod +x /opt/airflow/sync_dags.sh

cat <<'EOF' >/etc/systemd/system/airflow-web.service
[Unit]
Description=Airflow standalone service syncing DAGs from S3
After=network.target

[Service]
User=airflow
Group=airflow
Environment="AIRFLOW_HOME=/opt/airflow"
ExecStart=/bin/bash -c "/opt/airflow/sync_dags.sh && source /opt/airflow/venv/bin/activate && airflow standalone"
Restart=on-failure

[Install]
WantedBy=multi-user.target
EOF

systemctl daemon-reload
systemctl enable --now airflow-web.service
`))

// webserviceUserData installs the Flask app behind Gunicorn on a unix
// socket with Nginx in front on port 80.
var webserviceUserData = template.Must(template.New("webservice").Parse(`#!/bin/bash
set -xeuo pipefail

apt-get update -y
apt-get install -y python3 python3-venv python3-pip nginx

install -d -o ubuntu -g ubuntu /opt/rest_app
cat <<'EOF' >/opt/rest_app/app.py
{{.AppSource}}EOF
chown ubuntu:ubuntu /opt/rest_app/app.py

sudo -u ubuntu python3 -m venv /opt/rest_app/venv
sudo -u ubuntu /opt/rest_app/venv/bin/pip install --upgrade pip
sudo -u ubuntu /opt/rest_app/venv/bin/pip install flask gunicorn

cat <<'EOF' >/etc/systemd/system/restapp.service
[Unit]
Description=Gunicorn instance to serve Flask REST app
After=network.target

[Service]
User=ubuntu
Group=www-data
WorkingDirectory=/opt/rest_app
Environment="PATH=/opt/rest_app/venv/bin"
ExecStart=/opt/rest_app/venv/bin/gunicorn --bind unix:/opt/rest_app/restapp.sock app:app

[Install]
WantedBy=multi-user.target
EOF

systemctl daemon-reload
systemctl enable --now restapp.service

cat <<'EOF' >/etc/nginx/sites-available/restapp
server {
    listen 80;
    server_name _;

    location / {
        proxy_pass http://unix:/opt/rest_app/restapp.sock;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
EOF

ln -sf /etc/nginx/sites-available/restapp /etc/nginx/sites-enabled/restapp
rm -f /etc/nginx/sites-enabled/default
systemctl restart nginx
`))

// SchedulerUserData renders the scheduler install script for the given
// definitions bucket.
func SchedulerUserData(bucket string) (string, error) {
	var sb strings.Builder
	if err := schedulerUserData.Execute(&sb, struct{ Bucket string }{bucket}); err != nil {
		return "", fmt.Errorf("rendering scheduler user data: %w", err)
	}
	return sb.String(), nil
}

// WebserviceUserData renders the web service install script with the
// app source inlined.
func WebserviceUserData() (string, error) {
	var sb strings.Builder
	if err := webserviceUserData.Execute(&sb, struct{ AppSource string }{flaskApp}); err != nil {
		return "", fmt.Errorf("rendering webservice user data: %w", err)
	}
	return sb.String(), nil
}

// SampleCSV returns the small dataset used to exercise object puts and
// gets, timestamped at generation time.
func SampleCSV() []byte {
	now := time.Now().UTC().Format(time.RFC3339)
	var sb strings.Builder
	sb.WriteString("id,name,timestamp\n")
	sb.WriteString("1,alpha," + now + "\n")
	sb.WriteString("2,beta," + now + "\n")
	return []byte(sb.String())
}
