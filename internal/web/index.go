package web

// Single-page UI: order book, chart, trade form and account panels fed by /api/market/stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Simex</title>
  <style>
    :root { --ink:#111; --soft:#888; --bid:#1f8a4c; --ask:#c0392b; --panel:#f6f6f6; }
    * { box-sizing:border-box; }
    body { margin:0; padding:1.5rem; font-family:'Space Mono',monospace; color:var(--ink); background:#fff; }
    header { display:flex; gap:1rem; align-items:center; margin-bottom:1rem; }
    #status { margin-left:auto; font-size:.8rem; color:var(--soft); }
    main { display:grid; grid-template-columns:320px 1fr 320px; gap:1rem; }
    section { background:var(--panel); border:2px solid var(--ink); padding:1rem; }
    h2 { font-size:.9rem; margin:0 0 .5rem; text-transform:uppercase; }
    table { width:100%; border-collapse:collapse; font-size:.8rem; }
    td { padding:2px 4px; position:relative; cursor:pointer; }
    .bar { position:absolute; right:0; top:0; bottom:0; opacity:.15; }
    .bid .bar { background:var(--bid); } .ask .bar { background:var(--ask); }
    .bid td:first-child { color:var(--bid); } .ask td:first-child { color:var(--ask); }
    input, select, button { font:inherit; padding:.3rem; width:100%; margin-bottom:.4rem; }
    input.invalid { border-color:var(--ask); }
    svg { width:100%; height:260px; }
    #log { font-size:.7rem; max-height:160px; overflow:auto; }
  </style>
</head>
<body>
  <header>
    <strong>SIMEX</strong>
    <select id="pair"></select>
    <span id="mid"></span>
    <span id="status"></span>
  </header>
  <main>
    <section>
      <h2>Order book</h2>
      <table id="asks"></table>
      <hr />
      <table id="bids"></table>
    </section>
    <section>
      <h2>Chart</h2>
      <svg id="chart" viewBox="0 0 600 260" preserveAspectRatio="none"></svg>
      <h2>Orders</h2>
      <table id="orders"></table>
    </section>
    <section>
      <h2>Trade</h2>
      <label><input type="checkbox" id="auto" checked style="width:auto" /> auto-update</label>
      <select id="side"><option value="bid">bid</option><option value="ask">ask</option></select>
      <input id="price" placeholder="price" />
      <input id="amount" placeholder="amount" />
      <button id="submit">Place order</button>
      <div id="docket"></div>
      <h2>Balances</h2>
      <table id="balances"></table>
      <h2>Activity</h2>
      <div id="log"></div>
    </section>
  </main>
<script>
const $ = (id) => document.getElementById(id);
const api = (method, path, body) => fetch('/api' + path, {
  method, headers: {'Content-Type': 'application/json'}, body: body ? JSON.stringify(body) : undefined,
}).then(async (r) => { const data = r.status === 204 ? {} : await r.json(); if (!r.ok) throw new Error(data.error); return data; });

function rows(el, list, side) {
  el.innerHTML = '';
  list.forEach((row, i) => {
    const tr = document.createElement('tr');
    tr.className = side;
    tr.innerHTML = '<td>' + row.price + '</td><td>' + row.amount + '<span class="bar" style="width:' + row.width + '%"></span></td>';
    tr.onclick = () => api('POST', '/market/depth/select', {side, index: i}).catch(report);
    el.appendChild(tr);
  });
}

function chart(points) {
  const svg = $('chart');
  if (!points || points.length === 0) { svg.innerHTML = ''; return; }
  const xs = points.map(p => p.time), ys = points.map(p => p.value);
  const x0 = Math.min(...xs), x1 = Math.max(...xs) || 1, y0 = Math.min(...ys), y1 = Math.max(...ys);
  const sx = (x) => (x1 === x0 ? 0 : (x - x0) / (x1 - x0) * 600);
  const sy = (y) => (y1 === y0 ? 130 : 260 - (y - y0) / (y1 - y0) * 250);
  svg.innerHTML = '<polyline fill="none" stroke="#111" stroke-width="2" points="' +
    points.map(p => sx(p.time) + ',' + sy(p.value)).join(' ') + '" />';
}

function renderMarket(v) {
  const pair = $('pair');
  if (pair.options.length !== v.books.length) {
    pair.innerHTML = v.books.map(b => '<option>' + b.pair + '</option>').join('');
  }
  pair.value = v.pair;
  rows($('asks'), v.depth.asks, 'ask');
  rows($('bids'), v.depth.bids, 'bid');
  const q = v.quotes.quotes.find(q => q.pair === v.pair);
  $('mid').textContent = q ? 'mid ' + q.mid_price : '';
  chart(v.chart.points);
}

function renderTrade(t) {
  $('auto').checked = t.auto_update;
  $('side').value = t.draft.side;
  if (document.activeElement !== $('price')) $('price').value = t.draft.price;
  if (document.activeElement !== $('amount')) $('amount').value = t.draft.amount;
  $('price').classList.toggle('invalid', !t.price_valid);
  $('amount').classList.toggle('invalid', !t.amount_valid);
  $('submit').disabled = !t.valid || t.pending > 0;
  const d = t.docket;
  $('docket').innerHTML = d ? 'order ' + d.order_id + ' ' + d.status + ' remain ' + d.remain + ' <button id="cancel">Cancel</button>' : '';
  if (d) $('cancel').onclick = () => api('DELETE', '/trade/docket').catch(report);
}

function report(err) { $('status').textContent = err.message; }

function refreshAccount() {
  api('GET', '/balances').then(b => {
    $('balances').innerHTML = b.rows.map(r => '<tr><td>' + r.symbol + '</td><td>' + r.balance + '</td><td>' + r.available + '</td></tr>').join('');
  }).catch(() => {});
  api('GET', '/orders').then(h => {
    $('orders').innerHTML = (h.groups.all || []).map(o => '<tr><td>' + o.order_id + '</td><td>' + o.pair + '</td><td>' + o.side + '</td><td>' + o.price + '</td><td>' + o.amount + '</td><td>' + o.status + '</td></tr>').join('');
  }).catch(() => {});
  api('GET', '/activity').then(a => {
    $('status').textContent = a.error ? a.status + ': ' + a.error : a.status;
    $('log').innerHTML = a.entries.slice(-50).reverse().map(e => '<div>' + e.time.slice(11, 19) + ' ' + e.message + '</div>').join('');
  }).catch(() => {});
}

$('pair').onchange = (e) => api('POST', '/market/pair', {pair: e.target.value}).catch(report);
$('auto').onchange = (e) => api('POST', '/trade', {auto_update: e.target.checked}).catch(report);
$('side').onchange = (e) => api('POST', '/trade', {side: e.target.value}).catch(report);
$('price').oninput = (e) => api('POST', '/trade', {price: e.target.value}).then(renderTrade).catch(report);
$('amount').oninput = (e) => api('POST', '/trade', {amount: e.target.value}).then(renderTrade).catch(report);
$('submit').onclick = () => api('POST', '/trade/submit').then(refreshAccount).catch(report);

const stream = new EventSource('/api/market/stream');
stream.addEventListener('market', (e) => renderMarket(JSON.parse(e.data)));
stream.addEventListener('trade', (e) => renderTrade(JSON.parse(e.data)));
refreshAccount();
setInterval(refreshAccount, 30000);
</script>
</body>
</html>
`
